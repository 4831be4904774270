package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := NewError(CodeNotFound, "gone")
	assert.Equal(t, CodeNotFound, CodeOf(err))

	wrapped := fmt.Errorf("outer: %w", WrapError(errors.New("inner"), CodeTransientBackend, "hiccup"))
	assert.Equal(t, CodeTransientBackend, CodeOf(wrapped))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsTransient(NewError(CodeTransientBackend, "x")))
	assert.True(t, IsTransient(NewError(CodeTranscriptionTimeout, "x")))
	assert.True(t, IsTransient(NewError(CodeModelUnavailable, "x")))
	assert.False(t, IsTransient(NewError(CodeEmptyTranscript, "x")))
	assert.False(t, IsTransient(NewError(CodeCancelled, "x")))

	assert.True(t, IsStateConflict(NewError(CodeAlreadyRunning, "x")))
	assert.True(t, IsStateConflict(NewError(CodeStateConflict, "x")))
	assert.False(t, IsStateConflict(NewError(CodeNotFound, "x")))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapError(inner, CodeInternal, "write failed")
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "disk full")
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "00:00", FormatTime(0))
	assert.Equal(t, "01:05", FormatTime(65))
	assert.Equal(t, "12:34", FormatTime(754))
	assert.Equal(t, "00:00", FormatTime(-3))
	assert.Equal(t, "01:05-02:10", FormatRange(65, 130))
}

func TestTokenize(t *testing.T) {
	toks := Tokenize("The quick brown fox, and the lazy dog!")
	assert.Equal(t, []string{"quick", "brown", "fox", "lazy", "dog"}, toks)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", TruncateRunes("short", 10))
	assert.Equal(t, "abc...", TruncateRunes("abcdef", 3))
}
