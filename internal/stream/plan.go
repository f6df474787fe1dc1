package stream

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"elearn/internal/storage"
)

type Mode int

const (
	Full Mode = iota
	Partial
)

func (m Mode) String() string {
	if m == Partial {
		return "partial"
	}
	return "full"
}

// Plan is the byte range a response will carry. For Partial plans Start <= End and
// Length == End-Start+1, except when OpenEnded: the size was unknown and the request
// had no end, so End and Length are settled by the stream the store opens.
type Plan struct {
	Mode       Mode
	Start      int64
	End        int64
	Length     int64
	TotalKnown bool
	Total      int64
	OpenEnded  bool
}

func FullPlan(size storage.Size) Plan {
	p := Plan{Mode: Full, TotalKnown: size.Known}
	if size.Known {
		p.Total = size.Bytes
		p.Length = size.Bytes
		if size.Bytes > 0 {
			p.End = size.Bytes - 1
		}
	}
	return p
}

// Status is 206 for Partial plans and 200 otherwise.
func (p Plan) Status() int {
	if p.Mode == Partial {
		return http.StatusPartialContent
	}
	return http.StatusOK
}

// ContentRange renders the Content-Range value for a Partial plan.
func (p Plan) ContentRange() string {
	if p.TotalKnown {
		return fmt.Sprintf("bytes %d-%d/%d", p.Start, p.End, p.Total)
	}
	return fmt.Sprintf("bytes %d-%d/*", p.Start, p.End)
}

// PlanRange turns a Range header into a Plan. It never fails: anything it cannot
// read as a single bytes=<start>-<end> range is served in full. Out-of-bounds values
// are clamped instead of rejected.
func PlanRange(header string, size storage.Size) Plan {
	full := FullPlan(size)

	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "bytes=") {
		return full
	}
	if size.Known && size.Bytes <= 0 {
		return full
	}
	byteRange := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(byteRange, ",") {
		return full
	}
	parts := strings.Split(byteRange, "-")
	if len(parts) != 2 {
		return full
	}
	rawStart, rawEnd := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if rawStart == "" && rawEnd == "" {
		return full
	}

	start, ok := parsePosition(rawStart)
	if !ok {
		return full
	}
	end, ok := parsePosition(rawEnd)
	if !ok {
		return full
	}

	p := Plan{Mode: Partial, Start: start, TotalKnown: size.Known}
	if size.Known {
		p.Total = size.Bytes
		if p.Start >= size.Bytes {
			p.Start = size.Bytes - 1
		}
	}

	switch {
	case rawEnd != "":
		p.End = end
	case size.Known:
		p.End = size.Bytes - 1
	default:
		p.OpenEnded = true
		return p
	}

	if size.Known && p.End >= size.Bytes {
		p.End = size.Bytes - 1
	}
	if p.End < p.Start {
		p.End = p.Start
	}
	p.Length = p.End - p.Start + 1
	return p
}

// parsePosition reads an unsigned decimal byte position. Empty means 0.
func parsePosition(raw string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
