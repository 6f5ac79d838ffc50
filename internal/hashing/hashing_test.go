package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFast_SameInput_SameHash(t *testing.T) {
	assert.Equal(t, Fast("hello world"), Fast("hello world"))
	assert.Equal(t, Fast("hello"), FastBytes([]byte("hello")))
}

func TestFast_DifferentInput_DifferentHash(t *testing.T) {
	assert.NotEqual(t, Fast("hello"), Fast("hello "))
	assert.NotEqual(t, Fast(""), Fast(" "))
}

func TestFastTrimmed_SurroundingWhitespace_Ignored(t *testing.T) {
	assert.Equal(t, FastTrimmed("  content  \n"), FastTrimmed("content"))
	assert.NotEqual(t, FastTrimmed("con tent"), FastTrimmed("content"))
}

func TestFastNormalized_BlankLines_Ignored(t *testing.T) {
	a := "line one\n\n\nline two\n"
	b := "line one\nline two"
	assert.Equal(t, FastNormalized(a), FastNormalized(b))
}

func TestFastNormalized_Indentation_Detected(t *testing.T) {
	// Inside code blocks indentation is content, so it must survive
	// normalization.
	a := "flowchart LR\n    A --> B"
	b := "flowchart LR\nA --> B"
	assert.NotEqual(t, FastNormalized(a), FastNormalized(b))
}

func TestFastNormalized_ContentChange_Detected(t *testing.T) {
	assert.NotEqual(t, FastNormalized("line one\nline two"), FastNormalized("line one\nline three"))
}

func TestFastAlnum_PunctuationAndCase_Ignored(t *testing.T) {
	assert.Equal(t, FastAlnum("Hello, World!"), FastAlnum("hello world"))
	assert.Equal(t, FastAlnum("a-b-c"), FastAlnum("ABC"))
	assert.NotEqual(t, FastAlnum("abc1"), FastAlnum("abc2"))
}

func TestNormalize_StripsBlankLinesOnly(t *testing.T) {
	in := "  first\n\n\t\nsecond  \n\n"
	assert.Equal(t, "  first\nsecond  ", Normalize(in))
	assert.Equal(t, "", Normalize("\n\n  \n"))
}

func TestSecure_KnownDigest(t *testing.T) {
	// sha256 of the empty string.
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Secure(""))
}

func TestSecureVariants_Equivalences(t *testing.T) {
	assert.Equal(t, Secure("abc"), SecureTrimmed("  abc\n"))
	assert.Equal(t, Secure("a\nb"), SecureNormalized("a\n\nb\n"))
	assert.Len(t, Secure("anything"), 64)
}
