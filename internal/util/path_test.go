package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandHome(t *testing.T) {
	home := cachedHomeDir()
	if home == "" {
		t.Skip("no home directory available")
	}
	assert.Equal(t, home+"/code", ExpandHome("~/code"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
	assert.Equal(t, "~nope", ExpandHome("~nope"))
}

func TestCollapseHome(t *testing.T) {
	home := cachedHomeDir()
	if home == "" {
		t.Skip("no home directory available")
	}
	assert.Equal(t, "~/code", CollapseHome(home+"/code"))
	assert.Equal(t, "~", CollapseHome(home))
	assert.Equal(t, "/other/path", CollapseHome("/other/path"))
}
