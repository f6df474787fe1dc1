package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"elearn/internal/storage"
)

type Disposition string

const (
	Inline     Disposition = "inline"
	Attachment Disposition = "attachment"
)

const cacheControl = "public, max-age=3600"

// Request describes one streamed response.
type Request struct {
	Handle      storage.Handle
	ContentType string
	Disposition Disposition
	Filename    string
	Plan        Plan
	// Header is merged into the response after the standard headers.
	Header http.Header
}

// Responder streams objects from one ObjectStore with range support.
type Responder struct {
	objects storage.ObjectStore
	logger  *slog.Logger
}

func NewResponder(objects storage.ObjectStore, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{objects: objects, logger: logger}
}

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// Serve opens the object and writes status, headers and body. It returns the number
// of body bytes written. An error from opening the stream is returned before the
// status line is written, with only the CORS headers set. A missing object
// matches storage.ErrObjectNotFound. A copy error is returned after the response is committed.
func (s *Responder) Serve(w http.ResponseWriter, r *http.Request, req Request) (int64, error) {
	log := s.logger.With("object", req.Handle.String())

	h := w.Header()
	SetCORS(h)
	obj, plan, err := s.open(r.Context(), req.Handle.Key, req.Plan, log)
	if err != nil {
		return 0, err
	}
	defer obj.Body.Close()

	h.Set("Content-Type", req.ContentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Disposition", contentDisposition(req.Disposition, req.Filename))
	h.Set("Cache-Control", cacheControl)
	for k, vs := range req.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}

	limit := int64(-1)
	switch {
	case plan.Mode == Partial:
		h.Set("Content-Range", plan.ContentRange())
		if !plan.OpenEnded {
			limit = plan.Length
		}
	case plan.TotalKnown:
		limit = plan.Total
	}
	if limit >= 0 {
		h.Set("Content-Length", strconv.FormatInt(limit, 10))
	}

	log.Debug("stream plan",
		"mode", plan.Mode.String(),
		"start", plan.Start,
		"end", plan.End,
		"total_known", plan.TotalKnown,
		"total", plan.Total,
	)
	w.WriteHeader(plan.Status())
	if r.Method == http.MethodHead {
		return 0, nil
	}

	var src io.Reader = obj.Body
	if limit >= 0 {
		src = io.LimitReader(obj.Body, limit)
	}
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)

	n, err := io.CopyBuffer(w, src, *bp)
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", req.Handle, err)
	}
	return n, nil
}

// open opens the stream the plan asks for and returns the plan adjusted to what the
// store actually opened.
func (s *Responder) open(ctx context.Context, key string, plan Plan, log *slog.Logger) (*storage.Object, Plan, error) {
	if plan.Mode == Full {
		obj, err := s.objects.Open(ctx, key)
		if err != nil {
			return nil, plan, fmt.Errorf("open %s: %w", key, err)
		}
		return obj, plan, nil
	}

	obj, err := s.objects.OpenRange(ctx, key, plan.Start, plan.Length)
	if errors.Is(err, storage.ErrInvalidRange) {
		log.Debug("store rejected range, serving full object", "start", plan.Start, "end", plan.End)
		return s.open(ctx, key, fullFallback(plan), log)
	}
	if err != nil {
		return nil, plan, fmt.Errorf("open %s: %w", key, err)
	}
	if plan.TotalKnown {
		return obj, plan, nil
	}

	// Unknown total: the store's byte count settles where the range really ends.
	if obj.Length > 0 {
		plan.End = plan.Start + obj.Length - 1
		plan.Length = obj.Length
		plan.OpenEnded = false
		return obj, plan, nil
	}
	// Neither the total nor the opened length is known, so no Content-Range or
	// Content-Length could be stated truthfully.
	_ = obj.Body.Close()
	log.Debug("range length unresolved, serving full object", "start", plan.Start, "end", plan.End)
	return s.open(ctx, key, fullFallback(plan), log)
}

func fullFallback(p Plan) Plan {
	if p.TotalKnown {
		return FullPlan(storage.KnownSize(p.Total))
	}
	return FullPlan(storage.UnknownSize)
}

func contentDisposition(d Disposition, filename string) string {
	if d == "" {
		d = Inline
	}
	if filename == "" {
		return string(d)
	}
	return string(d) + `; filename="` + quoteFilename(filename) + `"`
}

var filenameReplacer = strings.NewReplacer(`"`, `'`, `\`, "_", "\r", "", "\n", "")

func quoteFilename(name string) string {
	return filenameReplacer.Replace(name)
}
