package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docslice/internal/domain"
	"docslice/internal/port"
)

// sessionRow is the storage shape of a session: scalar columns for the
// fields we query on, and a jsonb payload for the segment store. The
// payload is a full snapshot; every save overwrites it (latest write
// wins, which matches the single-operator workflow).
type sessionRow struct {
	ID        uuid.UUID `db:"id"`
	Phase     string    `db:"phase"`
	BundleKey string    `db:"bundle_key"`
	MasterKey string    `db:"master_key"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type sessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo creates a new PostgreSQL-backed SessionRepository.
func NewSessionRepo(db *sqlx.DB) port.SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Save(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session.SegmentStore)
	if err != nil {
		return fmt.Errorf("sessionRepo.Save marshal: %w", err)
	}

	session.UpdatedAt = time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	query := `INSERT INTO sessions (id, phase, bundle_key, master_key, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			bundle_key = EXCLUDED.bundle_key,
			master_key = EXCLUDED.master_key,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		session.ID, string(session.Phase), session.BundleKey, session.MasterKey,
		payload, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sessionRepo.Save: %w", err)
	}
	return nil
}

func (r *sessionRepo) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM sessions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.Load: %w", err)
	}
	return rowToSession(&row)
}

func (r *sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("sessionRepo.Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) List(ctx context.Context, offset, limit int) ([]domain.Session, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sessions")
	if err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.List count: %w", err)
	}

	var rows []sessionRow
	err = r.db.SelectContext(ctx, &rows,
		"SELECT * FROM sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.List: %w", err)
	}

	sessions := make([]domain.Session, 0, len(rows))
	for i := range rows {
		s, err := rowToSession(&rows[i])
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, nil
}

func rowToSession(row *sessionRow) (*domain.Session, error) {
	var store domain.SegmentStore
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &store); err != nil {
			return nil, fmt.Errorf("sessionRepo: unmarshaling payload for %s: %w", row.ID, err)
		}
	}

	// Artifact bytes never reach the database, so a rehydrated segment
	// cannot honestly claim to be ready. Every segment comes back
	// pending and the operator reruns finalize.
	for i := range store.Segments {
		store.Segments[i].Status = domain.SegmentStatusPending
		store.Segments[i].Fingerprint = ""
		store.Segments[i].Artifact = nil
		store.Segments[i].Selected = false
	}

	return &domain.Session{
		ID:           row.ID,
		Phase:        domain.WorkflowPhase(row.Phase),
		SegmentStore: store,
		BundleKey:    row.BundleKey,
		MasterKey:    row.MasterKey,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
