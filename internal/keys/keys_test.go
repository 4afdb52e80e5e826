package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func TestParse(t *testing.T) {
	tests := []struct {
		pattern string
		want    []Step
	}{
		{"hello", []Step{{Text: "hello"}}},
		{"{Ctrl}{Shift}J", []Step{{Combo: []string{"ctrl", "shift", "j"}}}},
		{"{Shift}{Ctrl}J", []Step{{Combo: []string{"ctrl", "shift", "j"}}}},
		{"{Ctrl+A}", []Step{{Combo: []string{"ctrl", "a"}}}},
		{"{Enter}", []Step{{Combo: []string{"enter"}}}},
		{"{Return}", []Step{{Combo: []string{"enter"}}}},
		{"{Tab 3}", []Step{{Combo: []string{"tab"}}, {Combo: []string{"tab"}}, {Combo: []string{"tab"}}}},
		{"{Ctrl}{End 2}", []Step{{Combo: []string{"ctrl", "end"}}, {Combo: []string{"ctrl", "end"}}}},
		{"{Ctrl}ab", []Step{{Combo: []string{"ctrl", "a"}}, {Text: "b"}}},
		{"user{Tab}secret{Enter}", []Step{
			{Text: "user"}, {Combo: []string{"tab"}}, {Text: "secret"}, {Combo: []string{"enter"}},
		}},
		{"{{x}}", []Step{{Text: "{x}"}}},
		{"{Cmd}{+}", []Step{{Combo: []string{"cmd", "+"}}}},
		{"{Ctrl}{Plus}", []Step{{Combo: []string{"ctrl", "+"}}}},
		{"{F5}", []Step{{Combo: []string{"f5"}}}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Parse(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, pattern := range []string{
		"{Ctrl}",
		"abc{Shift}",
		"{Enter",
		"oops}",
		"{}",
		"{NoSuchKey}",
		"{Tab 0}",
		"{Tab many}",
		"{Ctrl 2}a",
		"{A+Ctrl}",
	} {
		t.Run(pattern, func(t *testing.T) {
			_, err := Parse(pattern)
			require.Error(t, err)
			assert.True(t, platform.Is(err, platform.CodeInvalidArgument), "got %v", err)
		})
	}
}

func TestIsModifier(t *testing.T) {
	assert.True(t, IsModifier("Control"))
	assert.True(t, IsModifier("option"))
	assert.False(t, IsModifier("enter"))
}
