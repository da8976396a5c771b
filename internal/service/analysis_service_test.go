package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docslice/internal/domain"
	"docslice/internal/port"
	"docslice/internal/service"
)

func TestAnalyze_NoBundle(t *testing.T) {
	svc, _ := setupSessionService()
	view, err := svc.Create(context.Background(), &service.CreateSessionInput{})
	assert.NoError(t, err)

	_, err = svc.Analyze(context.Background(), view.Session.ID)
	assert.ErrorIs(t, err, domain.ErrNoBundle)
}

func TestAnalyze_MintsFreshPendingSegments(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())

	assert.Len(t, view.Session.Segments, 2)
	assert.NotEqual(t, view.Session.Segments[0].ID, view.Session.Segments[1].ID)
	for _, seg := range view.Session.Segments {
		assert.Equal(t, domain.SegmentStatusPending, seg.Status)
		assert.Equal(t, []string{}, seg.Tags)
		assert.Empty(t, seg.Fingerprint)
	}
	assert.Equal(t, "Lab Results", view.Session.Segments[0].Title)
	assert.Equal(t, 1, view.Session.Segments[0].StartPage)
	assert.Equal(t, 3, view.Session.Segments[0].EndPage)
}

func TestAnalyze_ClassifierFailureLeavesStateUntouched(t *testing.T) {
	svc, deps := setupSessionService()
	ctx := context.Background()

	view, err := svc.Create(ctx, &service.CreateSessionInput{ContextHint: "hint"})
	assert.NoError(t, err)
	sessionID := view.Session.ID

	deps.pages.On("PageCount", mock.Anything).Return(3, nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	_, err = svc.UploadBundle(ctx, sessionID, []byte("%PDF-1.4"), "application/pdf")
	assert.NoError(t, err)

	deps.storage.On("Download", mock.Anything, "test-bucket", mock.Anything).
		Return([]byte("%PDF-1.4"), nil)
	deps.pages.On("ExtractPageTexts", mock.Anything, mock.Anything).
		Return([]string{"p1", "p2", "p3"}, nil)
	deps.classif.On("ProposeBoundaries", mock.Anything, mock.Anything).
		Return(nil, errors.New("model overloaded")).Once()

	_, err = svc.Analyze(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrAnalysisFailed)

	view, err = svc.Get(ctx, sessionID)
	assert.NoError(t, err)
	assert.Equal(t, domain.PhaseUpload, view.Session.Phase)
	assert.Empty(t, view.Session.Segments)
	assert.False(t, view.CanUndo)
}

func TestAnalyze_PassesContextHintToClassifier(t *testing.T) {
	svc, deps := setupSessionService()
	ctx := context.Background()

	view, err := svc.Create(ctx, &service.CreateSessionInput{ContextHint: "insurance claim 4411"})
	assert.NoError(t, err)
	sessionID := view.Session.ID

	deps.pages.On("PageCount", mock.Anything).Return(2, nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	_, err = svc.UploadBundle(ctx, sessionID, []byte("%PDF-1.4"), "application/pdf")
	assert.NoError(t, err)

	deps.storage.On("Download", mock.Anything, "test-bucket", mock.Anything).
		Return([]byte("%PDF-1.4"), nil)
	deps.pages.On("ExtractPageTexts", mock.Anything, mock.Anything).
		Return([]string{"p1", "p2"}, nil)
	deps.classif.On("ProposeBoundaries", mock.Anything, mock.MatchedBy(func(input port.ClassifyInput) bool {
		return input.ContextHint == "insurance claim 4411" && len(input.PageTexts) == 2
	})).Return([]domain.BoundaryProposal{
		{Title: "Claim Form", Category: "Form", StartPage: 1, EndPage: 2},
	}, nil)

	view, err = svc.Analyze(ctx, sessionID)
	assert.NoError(t, err)
	assert.Len(t, view.Session.Segments, 1)
	deps.classif.AssertExpectations(t)
}

func TestAnalyze_ReRunIsUndoable(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID
	firstRunIDs := []string{
		view.Session.Segments[0].ID.String(),
		view.Session.Segments[1].ID.String(),
	}

	view, err := svc.Analyze(ctx, sessionID)
	assert.NoError(t, err)
	assert.Len(t, view.Session.Segments, 2)
	// Re-running mints new identities even for identical proposals.
	assert.NotEqual(t, firstRunIDs[0], view.Session.Segments[0].ID.String())

	view, err = svc.Undo(ctx, sessionID)
	assert.NoError(t, err)
	assert.Equal(t, firstRunIDs[0], view.Session.Segments[0].ID.String())
	assert.Equal(t, firstRunIDs[1], view.Session.Segments[1].ID.String())
}

func TestAnalyze_UndoRestoresEmptyStore(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()

	view, err := svc.Undo(ctx, view.Session.ID)
	assert.NoError(t, err)
	assert.Empty(t, view.Session.Segments)
	assert.True(t, view.CanRedo)

	view, err = svc.Redo(ctx, view.Session.ID)
	assert.NoError(t, err)
	assert.Len(t, view.Session.Segments, 2)
}

func TestAnalyze_BusyWhileProcessing(t *testing.T) {
	// Analyze holds the processing flag for its duration; a second call
	// arriving mid-run must be rejected, not queued.
	svc, deps := setupSessionService()
	view := seedSegmentsStart(t, svc, deps)
	ctx := context.Background()
	sessionID := view.Session.ID

	release := make(chan struct{})
	started := make(chan struct{})
	deps.classif.On("ProposeBoundaries", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.BoundaryProposal{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Analyze(ctx, sessionID)
		done <- err
	}()

	<-started
	_, err := svc.Analyze(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(release)
	assert.NoError(t, <-done)
}

// seedSegmentsStart uploads a bundle but leaves the classifier
// expectation to the caller.
func seedSegmentsStart(t *testing.T, svc service.SessionService, deps *testDeps) *service.SessionView {
	t.Helper()
	ctx := context.Background()

	view, err := svc.Create(ctx, &service.CreateSessionInput{})
	assert.NoError(t, err)

	deps.pages.On("PageCount", mock.Anything).Return(5, nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	view, err = svc.UploadBundle(ctx, view.Session.ID, []byte("%PDF-1.4 bundle"), "application/pdf")
	assert.NoError(t, err)

	bundleKey := fmt.Sprintf("sessions/%s/bundle.pdf", view.Session.ID)
	deps.storage.On("Download", mock.Anything, "test-bucket", bundleKey).
		Return([]byte("%PDF-1.4 bundle"), nil)
	deps.pages.On("ExtractPageTexts", mock.Anything, mock.Anything).
		Return([]string{"p1", "p2", "p3", "p4", "p5"}, nil)
	return view
}
