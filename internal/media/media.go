package media

import (
	"path"
	"strings"
	"time"
)

type Kind string

const (
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

const (
	ContentTypeMP4  = "video/mp4"
	ContentTypeWebM = "video/webm"
	ContentTypeOgg  = "video/ogg"
	ContentTypePDF  = "application/pdf"
)

// Record is a stored video or document. Reference is the object reference as it
// was persisted at upload time: a bare object key, a direct URL or a presigned URL.
type Record struct {
	ID          int64
	LessonID    int64
	Kind        Kind
	Title       string
	Description string
	Reference   string
	ContentType string
	DurationSec int
	OrderIndex  int
	CreatedAt   time.Time
}

type Lesson struct {
	ID             int64
	Title          string
	Description    string
	Specialization string
	CreatedAt      time.Time
}

// NewRecord carries the fields of a record about to be created.
type NewRecord struct {
	LessonID    int64
	Kind        Kind
	Title       string
	Description string
	Reference   string
	ContentType string
	DurationSec int
}

// ServedContentType is the content type sent to clients: the declared type when
// it is specific, otherwise one derived from the kind and reference.
func (r Record) ServedContentType() string {
	declared := strings.TrimSpace(r.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if r.Kind == KindDocument {
		return ContentTypePDF
	}
	return VideoContentType(r.Reference)
}

// DownloadName is the filename offered in Content-Disposition.
func (r Record) DownloadName() string {
	title := strings.TrimSpace(r.Title)
	if r.Kind == KindDocument {
		if title == "" {
			title = "document"
		}
		if !strings.HasSuffix(strings.ToLower(title), ".pdf") {
			title += ".pdf"
		}
		return title
	}
	if title == "" {
		return "video" + videoExt(r.ServedContentType())
	}
	return title
}

// VideoContentType infers a playable content type from the reference's extension.
func VideoContentType(reference string) string {
	ref := reference
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	switch strings.ToLower(path.Ext(ref)) {
	case ".webm":
		return ContentTypeWebM
	case ".ogg", ".ogv":
		return ContentTypeOgg
	default:
		return ContentTypeMP4
	}
}

func videoExt(contentType string) string {
	switch contentType {
	case ContentTypeWebM:
		return ".webm"
	case ContentTypeOgg:
		return ".ogg"
	default:
		return ".mp4"
	}
}

// NormalizeVideoContentType applies the upload default: browsers often send no
// type or application/octet-stream for video files.
func NormalizeVideoContentType(contentType, filename string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" || ct == "application/octet-stream" {
		return VideoContentType(filename)
	}
	return ct
}

// IsPDF reports whether an upload is a PDF by content type or, failing that, extension.
func IsPDF(contentType, filename string) bool {
	if strings.EqualFold(strings.TrimSpace(contentType), ContentTypePDF) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".pdf")
}
