package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"elearn/internal/media"
)

// SQLiteStore is the single-node metadata store backed by modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const sqliteVideoColumns = `id, lesson_id, title, description, reference, content_type, duration_sec, order_index, created_at`
const sqliteDocumentColumns = `id, lesson_id, title, description, reference, content_type, 0, order_index, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner, kind media.Kind) (media.Record, error) {
	rec := media.Record{Kind: kind}
	var created sqliteTime
	err := row.Scan(&rec.ID, &rec.LessonID, &rec.Title, &rec.Description, &rec.Reference,
		&rec.ContentType, &rec.DurationSec, &rec.OrderIndex, &created)
	if err != nil {
		return media.Record{}, sqliteNotFound(err)
	}
	rec.CreatedAt = created.Time
	return rec, nil
}

func (s *SQLiteStore) GetVideo(ctx context.Context, id int64) (media.Record, error) {
	return scanSQLiteRecord(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteVideoColumns+`
		FROM videos
		WHERE id = ?
	`, id), media.KindVideo)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (media.Record, error) {
	return scanSQLiteRecord(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteDocumentColumns+`
		FROM documents
		WHERE id = ?
	`, id), media.KindDocument)
}

func (s *SQLiteStore) GetLessonVideo(ctx context.Context, lessonID, videoID int64) (media.Record, error) {
	return scanSQLiteRecord(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteVideoColumns+`
		FROM videos
		WHERE id = ? AND lesson_id = ?
	`, videoID, lessonID), media.KindVideo)
}

func (s *SQLiteStore) CreateLesson(ctx context.Context, l media.Lesson) (media.Lesson, error) {
	var created sqliteTime
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO lessons (title, description, specialization)
		VALUES (?, ?, ?)
		RETURNING id, created_at
	`, l.Title, l.Description, l.Specialization).Scan(&l.ID, &created)
	if err != nil {
		return media.Lesson{}, err
	}
	l.CreatedAt = created.Time
	return l, nil
}

func (s *SQLiteStore) GetLesson(ctx context.Context, id int64) (media.Lesson, error) {
	var l media.Lesson
	var created sqliteTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, specialization, created_at
		FROM lessons
		WHERE id = ?
	`, id).Scan(&l.ID, &l.Title, &l.Description, &l.Specialization, &created)
	if err != nil {
		return media.Lesson{}, sqliteNotFound(err)
	}
	l.CreatedAt = created.Time
	return l, nil
}

func (s *SQLiteStore) ListVideos(ctx context.Context, lessonID int64) ([]media.Record, error) {
	return s.list(ctx, lessonID, media.KindVideo, `
		SELECT `+sqliteVideoColumns+`
		FROM videos
		WHERE lesson_id = ?
		ORDER BY order_index, id
	`)
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, lessonID int64) ([]media.Record, error) {
	return s.list(ctx, lessonID, media.KindDocument, `
		SELECT `+sqliteDocumentColumns+`
		FROM documents
		WHERE lesson_id = ?
		ORDER BY order_index, id
	`)
}

func (s *SQLiteStore) list(ctx context.Context, lessonID int64, kind media.Kind, query string) ([]media.Record, error) {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []media.Record{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateRecord(ctx context.Context, in media.NewRecord) (media.Record, error) {
	table, err := tableFor(in.Kind)
	if err != nil {
		return media.Record{}, err
	}
	rec := media.Record{
		LessonID:    in.LessonID,
		Kind:        in.Kind,
		Title:       in.Title,
		Description: in.Description,
		Reference:   in.Reference,
		ContentType: in.ContentType,
		DurationSec: in.DurationSec,
	}

	var row *sql.Row
	if in.Kind == media.KindVideo {
		row = s.db.QueryRowContext(ctx, `
			INSERT INTO videos (lesson_id, title, description, reference, content_type, duration_sec, order_index)
			SELECT l.id, ?, ?, ?, ?, ?,
			       COALESCE((SELECT MAX(order_index) FROM videos WHERE lesson_id = l.id), 0) + 1
			FROM lessons l
			WHERE l.id = ?
			RETURNING id, order_index, created_at
		`, in.Title, in.Description, in.Reference, in.ContentType, in.DurationSec, in.LessonID)
	} else {
		rec.DurationSec = 0
		row = s.db.QueryRowContext(ctx, `
			INSERT INTO `+table+` (lesson_id, title, description, reference, content_type, order_index)
			SELECT l.id, ?, ?, ?, ?,
			       COALESCE((SELECT MAX(order_index) FROM `+table+` WHERE lesson_id = l.id), 0) + 1
			FROM lessons l
			WHERE l.id = ?
			RETURNING id, order_index, created_at
		`, in.Title, in.Description, in.Reference, in.ContentType, in.LessonID)
	}
	var created sqliteTime
	if err := row.Scan(&rec.ID, &rec.OrderIndex, &created); err != nil {
		return media.Record{}, sqliteNotFound(err)
	}
	rec.CreatedAt = created.Time
	return rec, nil
}

func (s *SQLiteStore) CreateToken(ctx context.Context, subject, name, tokenHash string, isAdmin bool) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_tokens (token_hash, subject, name, is_admin)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, tokenHash, subject, name, isAdmin).Scan(&id)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) AuthenticateToken(ctx context.Context, tokenHash string) (APIToken, error) {
	var t APIToken
	var created, lastUsed sqliteTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject, name, is_admin, disabled, created_at, last_used_at
		FROM api_tokens
		WHERE token_hash = ?
	`, tokenHash).Scan(&t.ID, &t.Subject, &t.Name, &t.IsAdmin, &t.Disabled, &created, &lastUsed)
	if err != nil {
		return APIToken{}, sqliteNotFound(err)
	}
	t.CreatedAt = created.Time
	if lastUsed.Valid {
		ts := lastUsed.Time
		t.LastUsedAt = &ts
	}
	return t, nil
}

func (s *SQLiteStore) TouchTokenLastUsed(ctx context.Context, id int64) {
	_, _ = s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func isSQLiteUniqueViolation(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqErr.Error(), "UNIQUE")
		}
	}
	return false
}

// sqliteTime scans the timestamp forms the driver may hand back.
type sqliteTime struct {
	Time  time.Time
	Valid bool
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

func (t *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case int64:
		t.Time, t.Valid = time.Unix(v, 0).UTC(), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqliteTime) parse(s string) error {
	for _, layout := range sqliteTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = ts.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}
