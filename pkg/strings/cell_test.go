package strings

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCell(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short name unchanged", input: "ci", maxLen: 10, want: "ci"},
		{name: "exact length unchanged", input: "deploy", maxLen: 6, want: "deploy"},
		{name: "long name cut", input: "nightly-backup-for-staging", maxLen: 12, want: "nightly-b..."},
		{name: "newlines flattened", input: "build\nbot", maxLen: 20, want: "build bot"},
		{name: "whitespace collapsed", input: "  Ada \t  Lovelace ", maxLen: 20, want: "Ada Lovelace"},
		{name: "empty", input: "", maxLen: 10, want: ""},
		{name: "small maxLen clamped", input: "release", maxLen: 1, want: "r..."},
		{name: "negative maxLen clamped", input: "release", maxLen: -3, want: "r..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.input, tt.maxLen))
		})
	}
}

func TestCell_CountsRunes(t *testing.T) {
	got := Cell("日本語テスト", 5)

	assert.Equal(t, "日本...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 5, utf8.RuneCountInString(got))
}
