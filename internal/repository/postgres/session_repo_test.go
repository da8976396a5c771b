package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"docslice/internal/domain"
)

func TestRowToSession_RehydrationResetsRuntimeState(t *testing.T) {
	segID := uuid.New()
	store := domain.SegmentStore{
		Segments: []domain.Segment{
			{
				ID:          segID,
				Title:       "Lab Results",
				Category:    "Lab Result",
				StartPage:   1,
				EndPage:     3,
				Tags:        []string{"priority"},
				Notes:       "check page 2",
				Status:      domain.SegmentStatusReady,
				Fingerprint: "deadbeef",
			},
		},
		ContextHint: "medical bundle",
	}
	payload, err := json.Marshal(store)
	assert.NoError(t, err)

	row := &sessionRow{
		ID:        uuid.New(),
		Phase:     string(domain.PhaseFinalized),
		BundleKey: "sessions/x/bundle.pdf",
		MasterKey: "sessions/x/master.pdf",
		Payload:   payload,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now(),
	}

	session, err := rowToSession(row)
	assert.NoError(t, err)

	// Metadata and order survive the round trip.
	assert.Equal(t, "medical bundle", session.ContextHint)
	seg := session.Segments[0]
	assert.Equal(t, segID, seg.ID)
	assert.Equal(t, "Lab Results", seg.Title)
	assert.Equal(t, []string{"priority"}, seg.Tags)
	assert.Equal(t, 1, seg.StartPage)
	assert.Equal(t, 3, seg.EndPage)

	// Runtime state does not: artifacts cannot be rehydrated honestly.
	assert.Equal(t, domain.SegmentStatusPending, seg.Status)
	assert.Empty(t, seg.Fingerprint)
	assert.Nil(t, seg.Artifact)
	assert.False(t, seg.Selected)
}

func TestRowToSession_EmptyPayload(t *testing.T) {
	row := &sessionRow{
		ID:    uuid.New(),
		Phase: string(domain.PhaseUpload),
	}

	session, err := rowToSession(row)
	assert.NoError(t, err)
	assert.Empty(t, session.Segments)
	assert.Equal(t, domain.PhaseUpload, session.Phase)
}

func TestRowToSession_CorruptPayload(t *testing.T) {
	row := &sessionRow{
		ID:      uuid.New(),
		Phase:   string(domain.PhaseReview),
		Payload: []byte("{not json"),
	}

	_, err := rowToSession(row)
	assert.Error(t, err)
}
