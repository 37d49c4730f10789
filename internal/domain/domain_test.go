package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageParamsOffset(t *testing.T) {
	assert.Equal(t, 0, PageParams{}.Offset())
	assert.Equal(t, 0, PageParams{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, PageParams{Page: 3, PageSize: 20}.Offset())
	assert.Equal(t, 0, PageParams{Page: 3}.Offset())
}

func TestParseRunStatus(t *testing.T) {
	status, ok := ParseRunStatus("  Succeeded ")
	assert.True(t, ok)
	assert.Equal(t, RunStatusSucceeded, status)
	assert.Equal(t, "Succeeded", RunStatusLabel(status))

	_, ok = ParseRunStatus("archived")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", RunStatusLabel("archived"))
}
