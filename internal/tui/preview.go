package tui

import (
	"strings"
	"time"

	"github.com/mvessia/grove/internal/capture"
)

// preview owns the live terminal snapshot shown in the preview pane. Render
// lines are recomputed only when the cleaned capture changed.
type preview struct {
	lines         []string
	cleanedLines  []string
	lastDigest    *capture.Digest
	lastRawDigest *capture.Digest
	offset        int
	autoScroll    bool
	lastScrollAt  time.Time
	summary       string
}

type previewUpdate struct {
	changedCleaned bool
	changedRaw     bool
}

func newPreview() preview {
	return preview{autoScroll: true}
}

// applyCapture evaluates change against the previous digests and, when the
// cleaned content moved, recomputes render lines and re-anchors autoscroll.
func (p *preview) applyCapture(raw string) previewUpdate {
	change := capture.EvaluateChange(p.lastDigest, p.lastRawDigest, raw)
	p.lastDigest = &change.Digest
	p.lastRawDigest = &change.RawDigest
	update := previewUpdate{
		changedCleaned: change.ChangedCleaned,
		changedRaw:     change.ChangedRaw,
	}
	if !change.ChangedCleaned && p.lines != nil {
		return update
	}
	p.summary = ""
	p.lines = strings.Split(strings.TrimRight(raw, "\n"), "\n")
	p.cleanedLines = strings.Split(strings.TrimRight(change.Cleaned, "\n"), "\n")
	if p.autoScroll {
		p.offset = 0
	}
	return update
}

// lastDigestValue exposes the cleaned digest snapshot for poll dispatch.
func (p *preview) lastDigestValue() *capture.Digest {
	return p.lastDigest
}

// scroll moves the viewport; a positive delta scrolls toward older output.
// Scrolling away from the bottom disables autoscroll; returning to the bottom
// re-enables it.
func (p *preview) scroll(delta int, now time.Time, viewportHeight int) bool {
	maxOffset := len(p.lines) - viewportHeight
	if maxOffset < 0 {
		maxOffset = 0
	}
	next := p.offset + delta
	if next < 0 {
		next = 0
	}
	if next > maxOffset {
		next = maxOffset
	}
	if next == p.offset {
		return false
	}
	p.offset = next
	p.autoScroll = next == 0
	p.lastScrollAt = now
	return true
}

// jumpToBottom re-anchors to live output.
func (p *preview) jumpToBottom() {
	p.offset = 0
	p.autoScroll = true
}

// setSummary replaces the live capture with a static summary (no session).
func (p *preview) setSummary(text string) {
	p.summary = text
	p.lines = nil
	p.cleanedLines = nil
	p.lastDigest = nil
	p.lastRawDigest = nil
	p.offset = 0
	p.autoScroll = true
}

// visible returns the slice of render lines for a viewport height, honoring
// the scroll offset from the bottom.
func (p *preview) visible(viewportHeight int) []string {
	if viewportHeight <= 0 || len(p.lines) == 0 {
		return nil
	}
	end := len(p.lines) - p.offset
	if end < 0 {
		end = 0
	}
	start := end - viewportHeight
	if start < 0 {
		start = 0
	}
	return p.lines[start:end]
}
