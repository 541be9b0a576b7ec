package commonModels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_AdvanceFollowsPipeline(t *testing.T) {
	doc := Document{Id: "d1", Status: StatusPendingUpload}

	require.NoError(t, doc.Advance(StatusUploadingToBackend, 10))
	require.NoError(t, doc.Advance(StatusUploadingToBackend, 40))
	assert.ErrorIs(t, doc.Advance(StatusUploadingToBackend, 30), ErrInvalidTransition)
	assert.ErrorIs(t, doc.Advance(StatusCompleted, 100), ErrInvalidTransition)

	require.NoError(t, doc.Fail("upload failed"))
	assert.Equal(t, 40, doc.Progress)
	assert.ErrorIs(t, doc.Advance(StatusPendingUpload, 0), ErrInvalidTransition)
}

func TestDocument_Reset(t *testing.T) {
	doc := Document{
		Id: "d1", Status: StatusFailed, Progress: 70, Error: "extraction failed",
		Backend: &BackendReference{ID: "b1"}, Content: []byte("raw"),
	}

	require.NoError(t, doc.Reset())
	assert.Equal(t, "d1", doc.Id)
	assert.Equal(t, StatusPendingUpload, doc.Status)
	assert.Zero(t, doc.Progress)
	assert.Empty(t, doc.Error)
	assert.Nil(t, doc.Backend)
	assert.Equal(t, []byte("raw"), doc.Content)
	require.NoError(t, doc.Advance(StatusUploadingToBackend, 0))

	for _, status := range []DocumentStatus{StatusPendingUpload, StatusAIProcessing, StatusCompleted} {
		d := Document{Status: status}
		assert.ErrorIs(t, d.Reset(), ErrInvalidTransition, status)
	}
}
