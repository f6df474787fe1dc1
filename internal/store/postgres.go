package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"elearn/internal/media"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgVideoColumns = `id, lesson_id, title, description, reference, content_type, duration_sec, order_index, created_at`
const pgDocumentColumns = `id, lesson_id, title, description, reference, content_type, 0, order_index, created_at`

func scanPGRecord(row pgx.Row, kind media.Kind) (media.Record, error) {
	rec := media.Record{Kind: kind}
	err := row.Scan(&rec.ID, &rec.LessonID, &rec.Title, &rec.Description, &rec.Reference,
		&rec.ContentType, &rec.DurationSec, &rec.OrderIndex, &rec.CreatedAt)
	if err != nil {
		return media.Record{}, pgNotFound(err)
	}
	return rec, nil
}

func (s *PostgresStore) GetVideo(ctx context.Context, id int64) (media.Record, error) {
	return scanPGRecord(s.db.QueryRow(ctx, `
		SELECT `+pgVideoColumns+`
		FROM videos
		WHERE id = $1
	`, id), media.KindVideo)
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (media.Record, error) {
	return scanPGRecord(s.db.QueryRow(ctx, `
		SELECT `+pgDocumentColumns+`
		FROM documents
		WHERE id = $1
	`, id), media.KindDocument)
}

func (s *PostgresStore) GetLessonVideo(ctx context.Context, lessonID, videoID int64) (media.Record, error) {
	return scanPGRecord(s.db.QueryRow(ctx, `
		SELECT `+pgVideoColumns+`
		FROM videos
		WHERE id = $1 AND lesson_id = $2
	`, videoID, lessonID), media.KindVideo)
}

func (s *PostgresStore) CreateLesson(ctx context.Context, l media.Lesson) (media.Lesson, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO lessons (title, description, specialization)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, l.Title, l.Description, l.Specialization).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return media.Lesson{}, err
	}
	return l, nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, id int64) (media.Lesson, error) {
	var l media.Lesson
	err := s.db.QueryRow(ctx, `
		SELECT id, title, description, specialization, created_at
		FROM lessons
		WHERE id = $1
	`, id).Scan(&l.ID, &l.Title, &l.Description, &l.Specialization, &l.CreatedAt)
	if err != nil {
		return media.Lesson{}, pgNotFound(err)
	}
	return l, nil
}

func (s *PostgresStore) ListVideos(ctx context.Context, lessonID int64) ([]media.Record, error) {
	return s.list(ctx, lessonID, media.KindVideo, `
		SELECT `+pgVideoColumns+`
		FROM videos
		WHERE lesson_id = $1
		ORDER BY order_index, id
	`)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, lessonID int64) ([]media.Record, error) {
	return s.list(ctx, lessonID, media.KindDocument, `
		SELECT `+pgDocumentColumns+`
		FROM documents
		WHERE lesson_id = $1
		ORDER BY order_index, id
	`)
}

func (s *PostgresStore) list(ctx context.Context, lessonID int64, kind media.Kind, query string) ([]media.Record, error) {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []media.Record{}
	for rows.Next() {
		rec, err := scanPGRecord(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateRecord(ctx context.Context, in media.NewRecord) (media.Record, error) {
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

	var row pgx.Row
	if in.Kind == media.KindVideo {
		row = s.db.QueryRow(ctx, `
			INSERT INTO videos (lesson_id, title, description, reference, content_type, duration_sec, order_index)
			SELECT l.id, $2::text, $3::text, $4::text, $5::text, $6::integer,
			       COALESCE((SELECT MAX(order_index) FROM videos WHERE lesson_id = l.id), 0) + 1
			FROM lessons l
			WHERE l.id = $1
			RETURNING id, order_index, created_at
		`, in.LessonID, in.Title, in.Description, in.Reference, in.ContentType, in.DurationSec)
	} else {
		rec.DurationSec = 0
		row = s.db.QueryRow(ctx, `
			INSERT INTO `+table+` (lesson_id, title, description, reference, content_type, order_index)
			SELECT l.id, $2::text, $3::text, $4::text, $5::text,
			       COALESCE((SELECT MAX(order_index) FROM `+table+` WHERE lesson_id = l.id), 0) + 1
			FROM lessons l
			WHERE l.id = $1
			RETURNING id, order_index, created_at
		`, in.LessonID, in.Title, in.Description, in.Reference, in.ContentType)
	}
	if err := row.Scan(&rec.ID, &rec.OrderIndex, &rec.CreatedAt); err != nil {
		// No row means the lesson does not exist.
		return media.Record{}, pgNotFound(err)
	}
	return rec, nil
}

func (s *PostgresStore) CreateToken(ctx context.Context, subject, name, tokenHash string, isAdmin bool) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO api_tokens (token_hash, subject, name, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, tokenHash, subject, name, isAdmin).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateToken looks up a token by hash and returns its metadata.
func (s *PostgresStore) AuthenticateToken(ctx context.Context, tokenHash string) (APIToken, error) {
	var t APIToken
	err := s.db.QueryRow(ctx, `
		SELECT id, subject, name, is_admin, disabled, created_at, last_used_at
		FROM api_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&t.ID, &t.Subject, &t.Name, &t.IsAdmin, &t.Disabled, &t.CreatedAt, &t.LastUsedAt)
	if err != nil {
		return APIToken{}, pgNotFound(err)
	}
	return t, nil
}

func (s *PostgresStore) TouchTokenLastUsed(ctx context.Context, id int64) {
	_, _ = s.db.Exec(ctx, `UPDATE api_tokens SET last_used_at = now() WHERE id = $1`, id)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func pgNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
