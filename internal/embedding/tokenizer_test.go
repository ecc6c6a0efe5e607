package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	require.Len(t, ids, 10)
	require.Len(t, types, 10)
	assert.Equal(t, int64(tokenCLS), ids[0])
	assert.Equal(t, int64(tokenSEP), ids[3])
	assert.Equal(t, int64(1), attn[3], "attention mask covers SEP")
	assert.Equal(t, int64(0), attn[4], "attention mask stops after SEP")
}

func TestSimpleTokenizer_caseInsensitive(t *testing.T) {
	tok := &SimpleTokenizer{}
	a, _, _ := tok.Tokenize("Hello", 4)
	b, _, _ := tok.Tokenize("hello", 4)
	assert.Equal(t, a[1], b[1])
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	ids, attn, _ := (&SimpleTokenizer{}).Tokenize("a b c d e f g", 4)
	require.Len(t, ids, 4)
	for i, v := range attn {
		assert.Equal(t, int64(1), v, "attention[%d] for a full window", i)
	}
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitWords("  a  b\tc\n"))
	assert.Nil(t, SplitWords(""))
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	assert.NotZero(t, h)
	assert.Equal(t, h, HashString("abc"))
}
