package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docslice/internal/config"
	"docslice/internal/domain"
	"docslice/internal/port"
	"docslice/internal/service"
	"docslice/mocks"
)

type testDeps struct {
	repo    *mocks.MockSessionRepo
	audit   *mocks.MockAuditRepo
	storage *mocks.MockObjectStorage
	pages   *mocks.MockPageSource
	classif *mocks.MockBoundaryClassifier
	email   *mocks.MockEmailSender
}

func setupSessionService() (service.SessionService, *testDeps) {
	return setupSessionServiceWithNotify("")
}

func setupSessionServiceWithNotify(notifyTo string) (service.SessionService, *testDeps) {
	deps := &testDeps{
		repo:    new(mocks.MockSessionRepo),
		audit:   new(mocks.MockAuditRepo),
		storage: new(mocks.MockObjectStorage),
		pages:   new(mocks.MockPageSource),
		classif: new(mocks.MockBoundaryClassifier),
		email:   new(mocks.MockEmailSender),
	}
	deps.repo.On("Save", mock.Anything, mock.Anything).Return(nil).Maybe()
	deps.audit.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := service.NewSessionService(
		deps.repo, deps.audit, deps.storage, deps.pages, deps.classif, deps.email,
		config.S3Config{Bucket: "test-bucket"},
		config.EmailConfig{NotifyTo: notifyTo},
		config.AnalysisConfig{PageTextLimit: 600},
	)
	return svc, deps
}

// seedSegments drives the service through analysis to install segments,
// so edit tests operate on real workflow state.
func seedSegments(t *testing.T, svc service.SessionService, deps *testDeps, proposals []domain.BoundaryProposal) *service.SessionView {
	t.Helper()
	ctx := context.Background()

	view, err := svc.Create(ctx, &service.CreateSessionInput{ContextHint: "test bundle"})
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
	deps.classif.On("ProposeBoundaries", mock.Anything, mock.Anything).Return(proposals, nil)

	view, err = svc.Analyze(ctx, view.Session.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.PhaseReview, view.Session.Phase)
	return view
}

func twoProposals() []domain.BoundaryProposal {
	return []domain.BoundaryProposal{
		{Title: "Lab Results", Description: "CBC panel", Category: "Lab Result", StartPage: 1, EndPage: 3},
		{Title: "Invoice", Description: "Hospital bill", Category: "Invoice", StartPage: 4, EndPage: 4},
	}
}

func TestSessionService_Create(t *testing.T) {
	svc, _ := setupSessionService()

	view, err := svc.Create(context.Background(), &service.CreateSessionInput{ContextHint: "medical records"})

	assert.NoError(t, err)
	assert.Equal(t, domain.PhaseUpload, view.Session.Phase)
	assert.Equal(t, "medical records", view.Session.ContextHint)
	assert.Empty(t, view.Session.Segments)
	assert.False(t, view.CanUndo)
}

func TestSessionService_SetField_UndoRedo(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID
	segID := view.Session.Segments[0].ID

	view, err := svc.SetField(ctx, &service.SetFieldInput{
		SessionID: sessionID,
		SegmentID: segID,
		Field:     domain.FieldTitle,
		Value:     json.RawMessage(`"Corrected Title"`),
	})
	assert.NoError(t, err)
	assert.Equal(t, "Corrected Title", view.Session.Segments[0].Title)
	assert.True(t, view.CanUndo)

	view, err = svc.Undo(ctx, sessionID)
	assert.NoError(t, err)
	assert.Equal(t, "Lab Results", view.Session.Segments[0].Title)
	assert.True(t, view.CanRedo)

	view, err = svc.Redo(ctx, sessionID)
	assert.NoError(t, err)
	assert.Equal(t, "Corrected Title", view.Session.Segments[0].Title)
}

func TestSessionService_SetField_InvalidField(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())

	_, err := svc.SetField(context.Background(), &service.SetFieldInput{
		SessionID: view.Session.ID,
		SegmentID: view.Session.Segments[0].ID,
		Field:     "fingerprint",
		Value:     json.RawMessage(`"nope"`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidField)
}

func TestSessionService_SetField_MistypedValue(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())

	_, err := svc.SetField(context.Background(), &service.SetFieldInput{
		SessionID: view.Session.ID,
		SegmentID: view.Session.Segments[0].ID,
		Field:     domain.FieldStartPage,
		Value:     json.RawMessage(`"three"`),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidField)
}

func TestSessionService_DeleteSegment_UndoRestoresOrderAndIDs(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID

	originalIDs := []uuid.UUID{view.Session.Segments[0].ID, view.Session.Segments[1].ID}

	view, err := svc.DeleteSegment(ctx, sessionID, originalIDs[0])
	assert.NoError(t, err)
	assert.Len(t, view.Session.Segments, 1)
	assert.Equal(t, originalIDs[1], view.Session.Segments[0].ID)

	view, err = svc.Undo(ctx, sessionID)
	assert.NoError(t, err)
	assert.Len(t, view.Session.Segments, 2)
	assert.Equal(t, originalIDs[0], view.Session.Segments[0].ID)
	assert.Equal(t, originalIDs[1], view.Session.Segments[1].ID)
}

func TestSessionService_DeleteSegment_NotFound(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())

	_, err := svc.DeleteSegment(context.Background(), view.Session.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrSegmentNotFound)
}

func TestSessionService_BulkSetTag_SelectedOnly(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID
	first := view.Session.Segments[0].ID

	_, err := svc.ToggleSelect(ctx, sessionID, first)
	assert.NoError(t, err)

	view, err = svc.BulkSetTag(ctx, sessionID, "priority")
	assert.NoError(t, err)
	assert.Equal(t, []string{"priority"}, view.Session.Segments[0].Tags)
	assert.Empty(t, view.Session.Segments[1].Tags)

	// Re-applying the same tag must not duplicate it.
	view, err = svc.BulkSetTag(ctx, sessionID, "priority")
	assert.NoError(t, err)
	assert.Equal(t, []string{"priority"}, view.Session.Segments[0].Tags)
}

func TestSessionService_BulkSetTag_EmptyRejected(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())

	_, err := svc.BulkSetTag(context.Background(), view.Session.ID, "")
	assert.ErrorIs(t, err, domain.ErrEmptyTag)
}

func TestSessionService_BulkSetCategory(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID

	_, err := svc.SelectAll(ctx, sessionID, true)
	assert.NoError(t, err)

	view, err = svc.BulkSetCategory(ctx, sessionID, "Medical Records")
	assert.NoError(t, err)
	for _, seg := range view.Session.Segments {
		assert.Equal(t, "Medical Records", seg.Category)
	}

	_, err = svc.BulkSetCategory(ctx, sessionID, "")
	assert.ErrorIs(t, err, domain.ErrEmptyCategory)
}

func TestSessionService_SelectionIsNotUndoable(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID

	// One history entry from Analyze itself.
	undoDepthBefore := view.CanUndo

	view, err := svc.ToggleSelect(ctx, sessionID, view.Session.Segments[0].ID)
	assert.NoError(t, err)
	assert.Len(t, view.SelectedIDs, 1)
	assert.Equal(t, undoDepthBefore, view.CanUndo)

	view, err = svc.SelectAll(ctx, sessionID, false)
	assert.NoError(t, err)
	assert.Empty(t, view.SelectedIDs)
}

func TestSessionService_NewEditClearsRedo(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID
	segID := view.Session.Segments[0].ID

	_, err := svc.SetField(ctx, &service.SetFieldInput{
		SessionID: sessionID, SegmentID: segID,
		Field: domain.FieldNotes, Value: json.RawMessage(`"first"`),
	})
	assert.NoError(t, err)

	view, err = svc.Undo(ctx, sessionID)
	assert.NoError(t, err)
	assert.True(t, view.CanRedo)

	view, err = svc.SetField(ctx, &service.SetFieldInput{
		SessionID: sessionID, SegmentID: segID,
		Field: domain.FieldNotes, Value: json.RawMessage(`"second"`),
	})
	assert.NoError(t, err)
	assert.False(t, view.CanRedo)
}

func TestSessionService_Reset(t *testing.T) {
	svc, deps := setupSessionService()
	view := seedSegments(t, svc, deps, twoProposals())
	ctx := context.Background()
	sessionID := view.Session.ID

	deps.repo.On("Delete", mock.Anything, sessionID).Return(nil)

	view, err := svc.Reset(ctx, sessionID)
	assert.NoError(t, err)
	assert.Empty(t, view.Session.Segments)
	assert.Equal(t, domain.PhaseUpload, view.Session.Phase)
	assert.False(t, view.CanUndo)
	assert.False(t, view.CanRedo)
}

func TestSessionService_ResumeFromStorage(t *testing.T) {
	svc, deps := setupSessionService()
	sessionID := uuid.New()

	stored := &domain.Session{
		ID:    sessionID,
		Phase: domain.PhaseReview,
		SegmentStore: domain.SegmentStore{
			Segments: []domain.Segment{
				{ID: uuid.New(), Title: "Recovered", Status: domain.SegmentStatusPending, Tags: []string{}},
			},
			ContextHint: "resumed",
		},
	}
	deps.repo.On("Load", mock.Anything, sessionID).Return(stored, nil).Once()

	view, err := svc.Get(context.Background(), sessionID)
	assert.NoError(t, err)
	assert.Equal(t, "Recovered", view.Session.Segments[0].Title)
	// History does not survive a restart.
	assert.False(t, view.CanUndo)
	assert.False(t, view.CanRedo)
}

func TestSessionService_GetUnknownSession(t *testing.T) {
	svc, deps := setupSessionService()
	sessionID := uuid.New()
	deps.repo.On("Load", mock.Anything, sessionID).Return(nil, domain.ErrNotFound)

	_, err := svc.Get(context.Background(), sessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionService_UploadRejectsNonPDF(t *testing.T) {
	svc, _ := setupSessionService()
	view, err := svc.Create(context.Background(), &service.CreateSessionInput{})
	assert.NoError(t, err)

	_, err = svc.UploadBundle(context.Background(), view.Session.ID, []byte("hello"), "text/plain")
	assert.ErrorIs(t, err, domain.ErrUnsupportedUpload)
}
