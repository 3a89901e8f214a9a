package phoneme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "plain runes", input: "aba", want: []string{"a", "b", "a"}},
		{name: "length marker is its own unit", input: "aː", want: []string{"a", "ː"}},
		{name: "combining mark attaches", input: "ãb", want: []string{"ã", "b"}},
		{name: "tie bar joins units", input: "t͡ʃa", want: []string{"t͡ʃ", "a"}},
		{name: "stress marks are dropped", input: "ˈpɪθ", want: []string{"p", "ɪ", "θ"}},
		{name: "whitespace is kept", input: "a b", want: []string{"a", " ", "b"}},
		{name: "dangling stress", input: "aˈ", want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IDs(Parse(tt.input))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStress(t *testing.T) {
	got := Parse("ˈpɪˌtʃ")

	assert.Len(t, got, 4)
	assert.Equal(t, Primary, got[0].Stress)
	assert.Equal(t, None, got[1].Stress)
	assert.Equal(t, Secondary, got[2].Stress)
	assert.Equal(t, None, got[3].Stress)
}

func TestParseStressSkipsWhitespace(t *testing.T) {
	got := Parse("ˈ a")

	assert.Equal(t, []string{" ", "a"}, IDs(got))
	assert.Equal(t, None, got[0].Stress)
	assert.Equal(t, Primary, got[1].Stress)
}

func TestLexerHoldsBackLastUnit(t *testing.T) {
	var l Lexer

	assert.Equal(t, []string{"a"}, IDs(l.Feed("ab")))
	assert.True(t, l.Pending())

	// The combining tilde arrives in the next chunk and still attaches to b.
	assert.Equal(t, []string{"b̃"}, IDs(l.Feed("̃c")))
	assert.Equal(t, []string{"c"}, IDs(l.Close()))
	assert.False(t, l.Pending())
}

func TestLexerChunkingInvariance(t *testing.T) {
	input := "ˈspiː t͡ʃ ãnd ˌθɪŋz"
	whole := Parse(input)

	var l Lexer
	var got []Phoneme
	for _, r := range input {
		got = append(got, l.Feed(string(r))...)
	}
	got = append(got, l.Close()...)

	assert.Equal(t, whole, got)
}
