package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_Totals(t *testing.T) {
	v := New("Tape statistics")
	v.AddSection("Statements")
	v.AddCount("Total number", 1500)
	v.AddMemory("Memory used", 2048, true, false)
	v.AddMemory("Memory allocated", 4096, false, true)
	v.AddSection("Arguments")
	v.AddMemory("Memory used", 1024, true, false)
	v.AddMemory("Memory allocated", 1024, false, true)

	assert.Equal(t, uint64(3072), v.UsedMemory())
	assert.Equal(t, uint64(5120), v.AllocatedMemory())

	n, ok := v.Lookup("Statements", "Total number")
	require.True(t, ok)
	assert.Equal(t, uint64(1500), n)

	_, ok = v.Lookup("Arguments", "Total number")
	assert.False(t, ok)
}

func TestValues_Format(t *testing.T) {
	v := New("Tape statistics")
	v.AddCount("Entries", 1234567)
	v.AddMemory("Memory used", 3<<20, true, true)

	out := v.String()
	assert.True(t, strings.HasPrefix(out, "---"))
	assert.Contains(t, out, "Tape statistics")
	assert.Contains(t, out, "General")
	assert.Contains(t, out, "1,234,567")
	assert.Contains(t, out, "3.0 MiB")
}

func TestValues_NegativeCountClamped(t *testing.T) {
	v := New("x")
	v.AddCount("n", -3)
	n, ok := v.Lookup("General", "n")
	require.True(t, ok)
	assert.Zero(t, n)
}
