//go:build darwin

package darwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboardRoundTrip(t *testing.T) {
	c := NewClipboard()
	for name, text := range map[string]string{
		"ascii":      "hello clipboard test",
		"unicode":    "Hello 🌍 café ñ 中文",
		"whitespace": "  line1\n\tline2\n  line3  ",
		"empty":      "",
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.SetText(text))
			got, err := c.GetText()
			require.NoError(t, err)
			assert.Equal(t, text, got)
		})
	}
}

func TestClipboardClear(t *testing.T) {
	c := NewClipboard()
	require.NoError(t, c.SetText("not empty"))
	require.NoError(t, c.Clear())
	got, err := c.GetText()
	require.NoError(t, err)
	assert.Empty(t, got)
}
