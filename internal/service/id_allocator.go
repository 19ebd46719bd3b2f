package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

// IDKind describes one family of human-readable identifiers.
type IDKind struct {
	Name   string
	Prefix string
	Width  int
}

var (
	EventIDKind    = IDKind{Name: "event", Prefix: "EID", Width: 2}
	FileIDKind     = IDKind{Name: "file", Prefix: "FILEID-", Width: 3}
	FeedbackIDKind = IDKind{Name: "feedback", Prefix: "FEEDBACK", Width: 2}
)

type maxIDReader interface {
	MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error)
}

// FormatID renders n with the kind's prefix, zero padded to at least Width digits.
func FormatID(kind IDKind, n uint64) string {
	return fmt.Sprintf("%s%0*d", kind.Prefix, kind.Width, n)
}

// ParseID extracts the numeric counter of id. Anything other than the prefix followed by
// ASCII digits is an integrity error.
func ParseID(kind IDKind, id string) (uint64, error) {
	digits, ok := strings.CutPrefix(id, kind.Prefix)
	if !ok || digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, malformedID(kind, id)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, malformedID(kind, id)
	}
	return n, nil
}

func malformedID(kind IDKind, id string) error {
	err := appErrors.Clone(appErrors.ErrIntegrity, fmt.Sprintf("malformed %s identifier %q", kind.Name, id))
	return appErrors.WithDetails(err, map[string]interface{}{"id": id, "kind": kind.Name})
}

// IDAllocator hands out the successor of the stored maximum identifier of each kind.
// Callers pass the transaction that will insert the row so the read and the insert commit together.
type IDAllocator struct {
	events   maxIDReader
	files    maxIDReader
	feedback maxIDReader
}

// NewIDAllocator constructs an allocator over the three identifier tables.
func NewIDAllocator(events, files, feedback maxIDReader) *IDAllocator {
	return &IDAllocator{events: events, files: files, feedback: feedback}
}

// NextID returns the next identifier of kind.
func (a *IDAllocator) NextID(ctx context.Context, exec sqlx.ExtContext, kind IDKind) (string, error) {
	switch kind {
	case EventIDKind:
		return a.next(ctx, exec, kind, a.events)
	case FileIDKind:
		return a.next(ctx, exec, kind, a.files)
	case FeedbackIDKind:
		return a.next(ctx, exec, kind, a.feedback)
	default:
		return "", appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unknown identifier kind %q", kind.Name))
	}
}

// NextEventID returns the next EIDxx value.
func (a *IDAllocator) NextEventID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return a.next(ctx, exec, EventIDKind, a.events)
}

// NextFileID returns the next FILEID-xxx value.
func (a *IDAllocator) NextFileID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return a.next(ctx, exec, FileIDKind, a.files)
}

// NextFeedbackID returns the next FEEDBACKxx value.
func (a *IDAllocator) NextFeedbackID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return a.next(ctx, exec, FeedbackIDKind, a.feedback)
}

func (a *IDAllocator) next(ctx context.Context, exec sqlx.ExtContext, kind IDKind, reader maxIDReader) (string, error) {
	current, err := reader.MaxID(ctx, exec)
	if err != nil {
		return "", classify(err, fmt.Sprintf("failed to read max %s id", kind.Name))
	}
	if current == "" {
		return FormatID(kind, 1), nil
	}
	n, err := ParseID(kind, current)
	if err != nil {
		return "", err
	}
	if n == math.MaxUint64 {
		return "", malformedID(kind, current)
	}
	return FormatID(kind, n+1), nil
}
