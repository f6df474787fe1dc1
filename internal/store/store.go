package store

import (
	"context"
	"errors"
	"time"

	"elearn/internal/media"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// MediaStore resolves media ids to records. It is all the streaming endpoints need.
type MediaStore interface {
	GetVideo(ctx context.Context, id int64) (media.Record, error)
	GetDocument(ctx context.Context, id int64) (media.Record, error)
	// GetLessonVideo returns ErrNotFound when the video belongs to another lesson.
	GetLessonVideo(ctx context.Context, lessonID, videoID int64) (media.Record, error)
}

// Store is the full metadata store used by the API.
type Store interface {
	MediaStore

	CreateLesson(ctx context.Context, l media.Lesson) (media.Lesson, error)
	GetLesson(ctx context.Context, id int64) (media.Lesson, error)
	ListVideos(ctx context.Context, lessonID int64) ([]media.Record, error)
	ListDocuments(ctx context.Context, lessonID int64) ([]media.Record, error)
	// CreateRecord appends a video or document to its lesson, after the last one.
	CreateRecord(ctx context.Context, rec media.NewRecord) (media.Record, error)

	CreateToken(ctx context.Context, subject, name, tokenHash string, isAdmin bool) (int64, error)
	AuthenticateToken(ctx context.Context, tokenHash string) (APIToken, error)
	TouchTokenLastUsed(ctx context.Context, id int64)

	Ping(ctx context.Context) error
	Close() error
}

type APIToken struct {
	ID         int64      `json:"id"`
	Subject    string     `json:"subject"`
	Name       string     `json:"name"`
	IsAdmin    bool       `json:"is_admin"`
	Disabled   bool       `json:"disabled"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func tableFor(kind media.Kind) (string, error) {
	switch kind {
	case media.KindVideo:
		return "videos", nil
	case media.KindDocument:
		return "documents", nil
	default:
		return "", errors.New("unknown media kind " + string(kind))
	}
}
