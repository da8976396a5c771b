package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"docslice/internal/config"
	"docslice/internal/domain"
	"docslice/internal/history"
	"docslice/internal/port"
)

// CreateSessionInput is the DTO for creating a workflow session.
type CreateSessionInput struct {
	ContextHint string
}

// SetFieldInput is the DTO for a single-field segment edit. Value is
// raw JSON decoded per field: strings for text fields, a string array
// for tags, integers for page numbers.
type SetFieldInput struct {
	SessionID uuid.UUID
	SegmentID uuid.UUID
	Field     domain.SegmentField
	Value     json.RawMessage
}

// SessionView is the API-facing projection of a session: the aggregate
// plus the runtime state (selection, undo availability) that the domain
// model deliberately keeps out of JSON.
type SessionView struct {
	Session     domain.Session `json:"session"`
	SelectedIDs []uuid.UUID    `json:"selected_segment_ids"`
	CanUndo     bool           `json:"can_undo"`
	CanRedo     bool           `json:"can_redo"`
	Processing  bool           `json:"processing"`
}

// SessionService defines the segmentation workflow contract.
type SessionService interface {
	Create(ctx context.Context, input *CreateSessionInput) (*SessionView, error)
	Get(ctx context.Context, id uuid.UUID) (*SessionView, error)
	List(ctx context.Context, offset, limit int) ([]domain.Session, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	UploadBundle(ctx context.Context, id uuid.UUID, data []byte, contentType string) (*SessionView, error)
	UploadMaster(ctx context.Context, id uuid.UUID, data []byte, contentType string) (*SessionView, error)

	Analyze(ctx context.Context, id uuid.UUID) (*SessionView, error)

	SetContextHint(ctx context.Context, id uuid.UUID, hint string) (*SessionView, error)
	SetField(ctx context.Context, input *SetFieldInput) (*SessionView, error)
	DeleteSegment(ctx context.Context, id, segmentID uuid.UUID) (*SessionView, error)
	ToggleSelect(ctx context.Context, id, segmentID uuid.UUID) (*SessionView, error)
	SelectAll(ctx context.Context, id uuid.UUID, selected bool) (*SessionView, error)
	BulkSetTag(ctx context.Context, id uuid.UUID, tag string) (*SessionView, error)
	BulkSetCategory(ctx context.Context, id uuid.UUID, category string) (*SessionView, error)

	Undo(ctx context.Context, id uuid.UUID) (*SessionView, error)
	Redo(ctx context.Context, id uuid.UUID) (*SessionView, error)
	Reset(ctx context.Context, id uuid.UUID) (*SessionView, error)

	Finalize(ctx context.Context, id uuid.UUID) ([]domain.SegmentOutcome, error)
	GetArtifact(ctx context.Context, id, segmentID uuid.UUID) ([]byte, string, error)

	ManifestCSV(ctx context.Context, id uuid.UUID) ([]byte, error)
	ReportXLSX(ctx context.Context, id uuid.UUID) ([]byte, error)
	ExportUpload(ctx context.Context, id uuid.UUID) ([]string, error)

	AuditTrail(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error)
}

// sessionState is the in-memory half of one session: the live
// aggregate, its history stacks, and the single-actor lock.
type sessionState struct {
	mu         sync.Mutex
	session    *domain.Session
	hist       *history.History
	processing bool
}

type sessionService struct {
	mu       sync.RWMutex
	states   map[uuid.UUID]*sessionState
	repo     port.SessionRepository
	audit    port.AuditRepository
	storage  port.ObjectStorage
	pages    port.PageSource
	classif  port.BoundaryClassifier
	email    port.EmailSender
	s3cfg    config.S3Config
	emailCfg config.EmailConfig
	analysis config.AnalysisConfig
}

// NewSessionService creates a new SessionService implementation.
func NewSessionService(
	repo port.SessionRepository,
	auditRepo port.AuditRepository,
	storage port.ObjectStorage,
	pages port.PageSource,
	classif port.BoundaryClassifier,
	email port.EmailSender,
	s3cfg config.S3Config,
	emailCfg config.EmailConfig,
	analysisCfg config.AnalysisConfig,
) SessionService {
	return &sessionService{
		states:   make(map[uuid.UUID]*sessionState),
		repo:     repo,
		audit:    auditRepo,
		storage:  storage,
		pages:    pages,
		classif:  classif,
		email:    email,
		s3cfg:    s3cfg,
		emailCfg: emailCfg,
		analysis: analysisCfg,
	}
}

func (s *sessionService) Create(ctx context.Context, input *CreateSessionInput) (*SessionView, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:    uuid.New(),
		Phase: domain.PhaseUpload,
		SegmentStore: domain.SegmentStore{
			ContextHint: input.ContextHint,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	state := &sessionState{session: session, hist: history.New()}
	s.mu.Lock()
	s.states[session.ID] = state
	s.mu.Unlock()

	s.persist(ctx, session)
	s.recordAudit(ctx, session.ID, nil, domain.AuditSessionCreated, map[string]interface{}{
		"context_hint": input.ContextHint,
	})

	state.mu.Lock()
	defer state.mu.Unlock()
	return s.view(state), nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return s.view(state), nil
}

func (s *sessionService) List(ctx context.Context, offset, limit int) ([]domain.Session, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *sessionService) Delete(ctx context.Context, id uuid.UUID) error {
	state, err := s.getState(ctx, id)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.processing {
		state.mu.Unlock()
		return domain.ErrSessionBusy
	}
	bundleKey, masterKey := state.session.BundleKey, state.session.MasterKey
	state.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	for _, key := range []string{bundleKey, masterKey} {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, s.s3cfg.Bucket, key); err != nil {
			log.Printf("sessionService.Delete: deleting object %s: %v", key, err)
		}
	}

	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()
	return nil
}

func (s *sessionService) UploadBundle(ctx context.Context, id uuid.UUID, data []byte, contentType string) (*SessionView, error) {
	return s.uploadPDF(ctx, id, data, contentType, "bundle")
}

func (s *sessionService) UploadMaster(ctx context.Context, id uuid.UUID, data []byte, contentType string) (*SessionView, error) {
	return s.uploadPDF(ctx, id, data, contentType, "master")
}

func (s *sessionService) uploadPDF(ctx context.Context, id uuid.UUID, data []byte, contentType, kind string) (*SessionView, error) {
	if contentType != "application/pdf" {
		return nil, domain.ErrUnsupportedUpload
	}
	if _, err := s.pages.PageCount(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedUpload, err)
	}

	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("sessions/%s/%s.pdf", id, kind)
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
		Size:        int64(len(data)),
	})
	if err != nil {
		return nil, fmt.Errorf("sessionService.uploadPDF: %w", err)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.processing {
		return nil, domain.ErrSessionBusy
	}
	if kind == "bundle" {
		state.session.BundleKey = key
	} else {
		state.session.MasterKey = key
	}
	s.persist(ctx, state.session)
	return s.view(state), nil
}

func (s *sessionService) SetContextHint(ctx context.Context, id uuid.UUID, hint string) (*SessionView, error) {
	return s.commitEdit(ctx, id, nil, domain.AuditContextEdited,
		map[string]interface{}{"context_hint": hint},
		func(store *domain.SegmentStore) error {
			store.ContextHint = hint
			return nil
		})
}

func (s *sessionService) SetField(ctx context.Context, input *SetFieldInput) (*SessionView, error) {
	if !domain.ValidSegmentFields[input.Field] {
		return nil, domain.ErrInvalidField
	}

	segID := input.SegmentID
	return s.commitEdit(ctx, input.SessionID, &segID, domain.AuditSegmentEdited,
		map[string]interface{}{"field": string(input.Field), "value": json.RawMessage(input.Value)},
		func(store *domain.SegmentStore) error {
			i := store.IndexOf(segID)
			if i < 0 {
				return domain.ErrSegmentNotFound
			}
			return applyFieldEdit(&store.Segments[i], input.Field, input.Value)
		})
}

func (s *sessionService) DeleteSegment(ctx context.Context, id, segmentID uuid.UUID) (*SessionView, error) {
	segID := segmentID
	return s.commitEdit(ctx, id, &segID, domain.AuditSegmentDeleted, nil,
		func(store *domain.SegmentStore) error {
			i := store.IndexOf(segID)
			if i < 0 {
				return domain.ErrSegmentNotFound
			}
			store.Segments = append(store.Segments[:i], store.Segments[i+1:]...)
			return nil
		})
}

func (s *sessionService) BulkSetTag(ctx context.Context, id uuid.UUID, tag string) (*SessionView, error) {
	if tag == "" {
		return nil, domain.ErrEmptyTag
	}
	return s.commitEdit(ctx, id, nil, domain.AuditBulkTag,
		map[string]interface{}{"tag": tag},
		func(store *domain.SegmentStore) error {
			for i := range store.Segments {
				seg := &store.Segments[i]
				if seg.Selected && !seg.HasTag(tag) {
					seg.Tags = append(seg.Tags, tag)
				}
			}
			return nil
		})
}

func (s *sessionService) BulkSetCategory(ctx context.Context, id uuid.UUID, category string) (*SessionView, error) {
	if category == "" {
		return nil, domain.ErrEmptyCategory
	}
	return s.commitEdit(ctx, id, nil, domain.AuditBulkCategory,
		map[string]interface{}{"category": category},
		func(store *domain.SegmentStore) error {
			for i := range store.Segments {
				if store.Segments[i].Selected {
					store.Segments[i].Category = category
				}
			}
			return nil
		})
}

// ToggleSelect flips one segment's selection. Selection is transient:
// no history entry and no persistence write.
func (s *sessionService) ToggleSelect(ctx context.Context, id, segmentID uuid.UUID) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	i := state.session.IndexOf(segmentID)
	if i < 0 {
		return nil, domain.ErrSegmentNotFound
	}
	state.session.Segments[i].Selected = !state.session.Segments[i].Selected
	return s.view(state), nil
}

func (s *sessionService) SelectAll(ctx context.Context, id uuid.UUID, selected bool) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	for i := range state.session.Segments {
		state.session.Segments[i].Selected = selected
	}
	return s.view(state), nil
}

func (s *sessionService) Undo(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	return s.timeTravel(ctx, id, domain.AuditSessionUndo)
}

func (s *sessionService) Redo(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	return s.timeTravel(ctx, id, domain.AuditSessionRedo)
}

func (s *sessionService) timeTravel(ctx context.Context, id uuid.UUID, action domain.AuditAction) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.processing {
		return nil, domain.ErrSessionBusy
	}

	var next domain.SegmentStore
	var ok bool
	if action == domain.AuditSessionUndo {
		next, ok = state.hist.Undo(state.session.SegmentStore)
	} else {
		next, ok = state.hist.Redo(state.session.SegmentStore)
	}
	if ok {
		state.session.SegmentStore = next
		s.persist(ctx, state.session)
		s.recordAudit(ctx, id, nil, action, nil)
	}
	return s.view(state), nil
}

// Reset discards all segments, the context hint, and both history
// stacks, and deletes the durable record. Reset itself is not undoable.
func (s *sessionService) Reset(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.processing {
		return nil, domain.ErrSessionBusy
	}

	state.session.SegmentStore = domain.SegmentStore{}
	state.session.Phase = domain.PhaseUpload
	state.hist.Clear()

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Printf("sessionService.Reset: deleting record for %s: %v", id, err)
	}
	s.persist(ctx, state.session)
	s.recordAudit(ctx, id, nil, domain.AuditSessionReset, nil)
	return s.view(state), nil
}

func (s *sessionService) AuditTrail(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error) {
	if _, err := s.getState(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.audit.ListBySession(ctx, id, offset, limit)
}

// commitEdit runs one undoable mutation under the session lock: clone
// the live store, apply, record the pre-edit snapshot, install the
// clone, persist, audit. Failed mutations leave no trace.
func (s *sessionService) commitEdit(
	ctx context.Context,
	id uuid.UUID,
	segmentID *uuid.UUID,
	action domain.AuditAction,
	changes map[string]interface{},
	mutate func(store *domain.SegmentStore) error,
) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.processing {
		return nil, domain.ErrSessionBusy
	}

	before := state.session.SegmentStore
	next := before.Clone()
	if err := mutate(&next); err != nil {
		return nil, err
	}

	state.hist.Record(before)
	state.session.SegmentStore = next

	// Content edits on a finalized session reopen it for review.
	if state.session.Phase == domain.PhaseFinalized {
		state.session.Phase = domain.PhaseReview
	}

	s.persist(ctx, state.session)
	s.recordAudit(ctx, id, segmentID, action, changes)
	return s.view(state), nil
}

// applyFieldEdit decodes the raw value per field and writes it onto the
// segment. A page-range change invalidates any finalized artifact.
func applyFieldEdit(seg *domain.Segment, field domain.SegmentField, value json.RawMessage) error {
	switch field {
	case domain.FieldTitle, domain.FieldDescription, domain.FieldCategory, domain.FieldNotes:
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("%w: %s expects a string", domain.ErrInvalidField, field)
		}
		switch field {
		case domain.FieldTitle:
			seg.Title = v
		case domain.FieldDescription:
			seg.Description = v
		case domain.FieldCategory:
			seg.Category = v
		case domain.FieldNotes:
			seg.Notes = v
		}
	case domain.FieldTags:
		var v []string
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("%w: tags expects a string array", domain.ErrInvalidField)
		}
		seg.Tags = dedupeTags(v)
	case domain.FieldStartPage, domain.FieldEndPage:
		var v int
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidField, field)
		}
		if field == domain.FieldStartPage {
			seg.StartPage = v
		} else {
			seg.EndPage = v
		}
		seg.Status = domain.SegmentStatusPending
		seg.Fingerprint = ""
		seg.Artifact = nil
	default:
		return domain.ErrInvalidField
	}
	return nil
}

// dedupeTags keeps first occurrences in order.
func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// getState returns the in-memory state for a session, reconstituting it
// from durable storage when the process has restarted since the session
// was last touched.
func (s *sessionService) getState(ctx context.Context, id uuid.UUID) (*sessionState, error) {
	s.mu.RLock()
	state, ok := s.states[id]
	s.mu.RUnlock()
	if ok {
		return state, nil
	}

	session, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Lost the race to another request; use the winner's state.
	if state, ok = s.states[id]; ok {
		return state, nil
	}
	state = &sessionState{session: session, hist: history.New()}
	s.states[id] = state
	log.Printf("sessionService.getState: resumed session %s from storage (%d segments)", id, len(session.Segments))
	return state, nil
}

// persist writes the session through to the repository. Persistence
// failure degrades to in-memory operation: log and carry on, the
// operator's work is not lost until the process dies.
func (s *sessionService) persist(ctx context.Context, session *domain.Session) {
	if err := s.repo.Save(ctx, session); err != nil {
		log.Printf("sessionService.persist: session %s: %v", session.ID, err)
	}
}

// recordAudit writes a chain-of-custody row. Best effort: failures are
// logged, never surfaced.
func (s *sessionService) recordAudit(ctx context.Context, sessionID uuid.UUID, segmentID *uuid.UUID, action domain.AuditAction, changes map[string]interface{}) {
	var raw json.RawMessage
	if changes != nil {
		b, err := json.Marshal(changes)
		if err != nil {
			log.Printf("sessionService.recordAudit: marshaling changes: %v", err)
		} else {
			raw = b
		}
	}
	entry := &domain.AuditEntry{
		SessionID: sessionID,
		SegmentID: segmentID,
		Action:    string(action),
		Changes:   raw,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Printf("sessionService.recordAudit: %s on %s: %v", action, sessionID, err)
	}
}

// view builds the API projection. Caller holds the state lock.
func (s *sessionService) view(state *sessionState) *SessionView {
	session := *state.session
	session.SegmentStore = state.session.SegmentStore.Clone()

	var selected []uuid.UUID
	for i := range session.Segments {
		if session.Segments[i].Selected {
			selected = append(selected, session.Segments[i].ID)
		}
	}

	return &SessionView{
		Session:     session,
		SelectedIDs: selected,
		CanUndo:     state.hist.CanUndo(),
		CanRedo:     state.hist.CanRedo(),
		Processing:  state.processing,
	}
}
