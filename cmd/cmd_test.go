package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davexplorer/davexplorer/cmd"
)

func TestCheckWritableReadOnly(t *testing.T) {
	// read_write defaults to false, so mutating commands are refused
	t.Setenv("DAVEXPLORER_URL", "http://dav.example.com")
	err := cmd.CheckWritable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}
