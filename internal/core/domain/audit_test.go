package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuditFilter_Normalise tests limit clamping and validation
func TestAuditFilter_Normalise(t *testing.T) {
	f, err := AuditFilter{}.Normalise()
	require.NoError(t, err)
	assert.Equal(t, MaxAuditLimit, f.Limit)

	f, err = AuditFilter{Limit: 500}.Normalise()
	require.NoError(t, err)
	assert.Equal(t, MaxAuditLimit, f.Limit)

	f, err = AuditFilter{Limit: 7}.Normalise()
	require.NoError(t, err)
	assert.Equal(t, 7, f.Limit)

	_, err = AuditFilter{Action: "DELETE"}.Normalise()
	require.ErrorIs(t, err, ErrValidation)

	start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err = AuditFilter{Start: &start, End: &end}.Normalise()
	require.ErrorIs(t, err, ErrValidation)
}

// TestAuditFilter_Matches tests each filter dimension
func TestAuditFilter_Matches(t *testing.T) {
	ts := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	event := &AuditEvent{Actor: "alice", Action: ActionUpload, DocumentID: "d1", Timestamp: ts}

	before := ts.Add(-time.Minute)
	after := ts.Add(time.Minute)

	assert.True(t, AuditFilter{}.Matches(event))
	assert.True(t, AuditFilter{Start: &before, End: &after}.Matches(event))
	assert.False(t, AuditFilter{Start: &after}.Matches(event))
	assert.False(t, AuditFilter{End: &before}.Matches(event))
	assert.False(t, AuditFilter{Actor: "bob"}.Matches(event))
	assert.False(t, AuditFilter{Action: ActionChatQuery}.Matches(event))
	assert.False(t, AuditFilter{DocumentID: "d2"}.Matches(event))
}
