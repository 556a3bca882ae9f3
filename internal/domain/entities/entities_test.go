package entities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineState_MergeDoesNotMutate(t *testing.T) {
	base := PipelineState{Question: "q", CollectionID: "pdf-1"}
	ctxChunks := []Chunk{{Text: "a"}, {Text: "b"}}

	next := base.Merge(StateUpdate{Context: ctxChunks})

	assert.Nil(t, base.Context, "original state must stay untouched")
	assert.Equal(t, "q", next.Question)
	assert.Len(t, next.Context, 2)

	ctxChunks[0].Text = "changed"
	assert.Equal(t, "a", next.Context[0].Text, "merged context must be a copy")
}

func TestPipelineState_MergeAnswer(t *testing.T) {
	answer := "Paris"
	base := PipelineState{Question: "q", Context: []Chunk{{Text: "x"}}}

	next := base.Merge(StateUpdate{Answer: &answer})

	assert.Equal(t, "Paris", next.Answer)
	assert.Empty(t, base.Answer)
	assert.Len(t, next.Context, 1, "nil context in update keeps previous context")
}

func TestPipelineState_MergeEmptyContextIsSet(t *testing.T) {
	base := PipelineState{Context: []Chunk{{Text: "old"}}}

	next := base.Merge(StateUpdate{Context: []Chunk{}})

	assert.NotNil(t, next.Context)
	assert.Empty(t, next.Context)
}

func TestErrors_Classification(t *testing.T) {
	assert.ErrorIs(t, ErrDocumentNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrCollectionNotFound, ErrNotFound)
	assert.NotErrorIs(t, ErrDocumentNotFound, ErrCollectionNotFound)

	err := Validation("question is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "question is required")
}

func TestUpstream_WrapsUnclassified(t *testing.T) {
	err := Upstream("embed question", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, Upstream("noop", nil))
}

func TestUpstream_KeepsExistingKind(t *testing.T) {
	err := Upstream("query collection", ErrCollectionNotFound)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrUpstream))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrDimensionMismatch))
	assert.True(t, IsPermanent(ErrCollectionNotFound))
	assert.False(t, IsPermanent(errors.New("connection reset")))
}
