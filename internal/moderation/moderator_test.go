package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_Censor(t *testing.T) {
	moderator, err := New([]string{"darn", "heck"}, '*')
	require.NoError(t, err)
	require.NotNil(t, moderator)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no match", input: "hello world", expected: "hello world"},
		{name: "plain word", input: "well darn it", expected: "well **** it"},
		{name: "upper case", input: "HECK yes", expected: "**** yes"},
		{name: "leet speak", input: "d4rn", expected: "****"},
		{name: "separated letters", input: "h.e.c.k", expected: "*******"},
		{name: "separators inside match only", input: "oh, h-e-c-k. fine", expected: "oh, *******. fine"},
		{name: "two matches", input: "darn and heck", expected: "**** and ****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, moderator.Censor(tt.input))
		})
	}
}

func TestModerator_NoWordsIsDisabled(t *testing.T) {
	req := require.New(t)

	moderator, err := New([]string{"", "   "}, '*')

	req.NoError(err)
	req.Nil(moderator)
	req.Equal("anything goes", moderator.Censor("anything goes"))
}
