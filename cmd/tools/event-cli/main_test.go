package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"stage-cleared", "item-picked"}, parseStringList(" stage-cleared, ,item-picked "))
}

func TestCounterStopsAtLimit(t *testing.T) {
	stopped := false
	c := &counter{byType: map[string]int{}, limit: 2, stop: func() { stopped = true }}
	c.add("item-picked")
	assert.False(t, stopped)
	c.add("stage-cleared")
	assert.True(t, stopped)
	assert.Equal(t, 1, c.byType["item-picked"])
	assert.Equal(t, 2, c.total)
}
