package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/ephemera/internal/model"
)

// FieldCipher encrypts the sensitive note columns at rest.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// NoteStore persists notes. Every read applies the owner and expiry
// predicates explicitly; nothing is filtered implicitly.
type NoteStore struct {
	db     *sql.DB
	cipher FieldCipher
	now    func() time.Time
}

// NewNoteStore returns a store using cipher for title and content. cipher may
// be nil when only PurgeExpired and the summary queries are used.
func NewNoteStore(db *sql.DB, cipher FieldCipher) *NoteStore {
	return &NoteStore{db: db, cipher: cipher, now: time.Now}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (s *NoteStore) scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	var title, content string
	var createdAt, expiresAt int64

	err := scanner.Scan(&n.ID, &n.OwnerID, &title, &content, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	if n.Title, err = s.cipher.Decrypt(title); err != nil {
		return nil, fmt.Errorf("decrypt title of note %d: %w", n.ID, err)
	}
	if n.Content, err = s.cipher.Decrypt(content); err != nil {
		return nil, fmt.Errorf("decrypt content of note %d: %w", n.ID, err)
	}
	n.CreatedAt = fromMillis(createdAt)
	n.ExpiresAt = fromMillis(expiresAt)
	return &n, nil
}

const noteCols = `id, owner_id, title, content, created_at, expires_at`

// Create inserts a note owned by ownerID. expiresAt is stored as given, even
// when it is already in the past.
func (s *NoteStore) Create(ctx context.Context, ownerID int64, title, content string, expiresAt time.Time) (*model.Note, error) {
	encTitle, err := s.cipher.Encrypt(title)
	if err != nil {
		return nil, fmt.Errorf("encrypt title: %w", err)
	}
	encContent, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO notes (owner_id, title, content, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING `+noteCols,
		ownerID, encTitle, encContent, toMillis(s.now()), toMillis(expiresAt),
	)
	n, err := s.scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

// List returns the active notes of ownerID, soonest to expire first.
func (s *NoteStore) List(ctx context.Context, ownerID int64) ([]model.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteCols+` FROM notes
		 WHERE owner_id = ? AND expires_at > ?
		 ORDER BY expires_at ASC, id ASC`,
		ownerID, toMillis(s.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := s.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// Get returns the note only if it is active and owned by ownerID. Missing,
// expired and foreign notes all yield model.ErrNotFound.
func (s *NoteStore) Get(ctx context.Context, ownerID, id int64) (*model.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+noteCols+` FROM notes WHERE id = ? AND owner_id = ? AND expires_at > ?`,
		id, ownerID, toMillis(s.now()),
	)
	n, err := s.scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// Update changes the non-nil fields of an active note owned by ownerID.
// Owner and creation time cannot be changed.
func (s *NoteStore) Update(ctx context.Context, ownerID, id int64, u model.NoteUpdate) (*model.Note, error) {
	if u.Empty() {
		return s.Get(ctx, ownerID, id)
	}

	var sets []string
	var args []any
	if u.Title != nil {
		enc, err := s.cipher.Encrypt(*u.Title)
		if err != nil {
			return nil, fmt.Errorf("encrypt title: %w", err)
		}
		sets = append(sets, "title = ?")
		args = append(args, enc)
	}
	if u.Content != nil {
		enc, err := s.cipher.Encrypt(*u.Content)
		if err != nil {
			return nil, fmt.Errorf("encrypt content: %w", err)
		}
		sets = append(sets, "content = ?")
		args = append(args, enc)
	}
	if u.ExpiresAt != nil {
		sets = append(sets, "expires_at = ?")
		args = append(args, toMillis(*u.ExpiresAt))
	}
	args = append(args, id, ownerID, toMillis(s.now()))

	row := s.db.QueryRowContext(ctx,
		`UPDATE notes SET `+strings.Join(sets, ", ")+`
		 WHERE id = ? AND owner_id = ? AND expires_at > ?
		 RETURNING `+noteCols,
		args...,
	)
	n, err := s.scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

// Delete removes a note owned by ownerID, whether or not it has expired.
// It returns model.ErrForbidden if the note belongs to another user and
// model.ErrNotFound if it does not exist (including when a purge won the race).
func (s *NoteStore) Delete(ctx context.Context, ownerID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count > 0 {
		return nil
	}

	var owner int64
	err = s.db.QueryRowContext(ctx, `SELECT owner_id FROM notes WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check note owner: %w", err)
	}
	return model.ErrForbidden
}

// PurgeExpired removes every expired note across all owners and returns the
// number deleted.
func (s *NoteStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE expires_at <= ?`, toMillis(s.now()))
	if err != nil {
		return 0, fmt.Errorf("purge expired notes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

const summaryCols = `id, owner_id, created_at, expires_at`

func scanSummary(scanner interface{ Scan(...any) error }) (*model.NoteSummary, error) {
	var ns model.NoteSummary
	var createdAt, expiresAt int64
	if err := scanner.Scan(&ns.ID, &ns.OwnerID, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	ns.CreatedAt = fromMillis(createdAt)
	ns.ExpiresAt = fromMillis(expiresAt)
	return &ns, nil
}

// ListSummaries returns the administrative view of all notes, expired ones
// included, newest first. The encrypted columns are never selected.
func (s *NoteStore) ListSummaries(ctx context.Context, f model.NoteSummaryFilter) ([]model.NoteSummary, error) {
	var where []string
	var args []any
	if f.OwnerID != 0 {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if !f.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toMillis(f.CreatedAfter))
	}
	if !f.CreatedBefore.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toMillis(f.CreatedBefore))
	}
	if !f.ExpiresAfter.IsZero() {
		where = append(where, "expires_at >= ?")
		args = append(args, toMillis(f.ExpiresAfter))
	}
	if !f.ExpiresBefore.IsZero() {
		where = append(where, "expires_at < ?")
		args = append(args, toMillis(f.ExpiresBefore))
	}

	query := `SELECT ` + summaryCols + ` FROM notes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list note summaries: %w", err)
	}
	defer rows.Close()

	var out []model.NoteSummary
	for rows.Next() {
		ns, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note summary: %w", err)
		}
		out = append(out, *ns)
	}
	return out, rows.Err()
}

// GetSummary returns the administrative view of a single note.
func (s *NoteStore) GetSummary(ctx context.Context, id int64) (*model.NoteSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryCols+` FROM notes WHERE id = ?`, id)
	ns, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note summary: %w", err)
	}
	return ns, nil
}
