package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

type fixedMaxID struct {
	id  string
	err error
}

func (f fixedMaxID) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return f.id, f.err
}

func TestIDAllocatorSeeds(t *testing.T) {
	alloc := NewIDAllocator(fixedMaxID{}, fixedMaxID{}, fixedMaxID{})
	ctx := context.Background()

	eventID, err := alloc.NextEventID(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "EID01", eventID)

	fileID, err := alloc.NextFileID(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "FILEID-001", fileID)

	feedbackID, err := alloc.NextFeedbackID(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "FEEDBACK01", feedbackID)
}

func TestIDAllocatorSuccessor(t *testing.T) {
	cases := []struct {
		name    string
		kind    IDKind
		current string
		want    string
	}{
		{name: "event", kind: EventIDKind, current: "EID07", want: "EID08"},
		{name: "event carry", kind: EventIDKind, current: "EID09", want: "EID10"},
		{name: "event widens", kind: EventIDKind, current: "EID99", want: "EID100"},
		{name: "event wide", kind: EventIDKind, current: "EID100", want: "EID101"},
		{name: "file", kind: FileIDKind, current: "FILEID-041", want: "FILEID-042"},
		{name: "file widens", kind: FileIDKind, current: "FILEID-999", want: "FILEID-1000"},
		{name: "feedback", kind: FeedbackIDKind, current: "FEEDBACK12", want: "FEEDBACK13"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reader := fixedMaxID{id: tc.current}
			alloc := NewIDAllocator(reader, reader, reader)
			got, err := alloc.next(context.Background(), nil, tc.kind, reader)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIDAllocatorNextIDDispatch(t *testing.T) {
	alloc := NewIDAllocator(fixedMaxID{id: "EID03"}, fixedMaxID{id: "FILEID-007"}, fixedMaxID{})
	ctx := context.Background()

	got, err := alloc.NextID(ctx, nil, EventIDKind)
	require.NoError(t, err)
	assert.Equal(t, "EID04", got)

	got, err = alloc.NextID(ctx, nil, FileIDKind)
	require.NoError(t, err)
	assert.Equal(t, "FILEID-008", got)

	got, err = alloc.NextID(ctx, nil, FeedbackIDKind)
	require.NoError(t, err)
	assert.Equal(t, "FEEDBACK01", got)

	_, err = alloc.NextID(ctx, nil, IDKind{Name: "other", Prefix: "X", Width: 1})
	assert.Error(t, err)
}

func TestIDAllocatorDeterministic(t *testing.T) {
	alloc := NewIDAllocator(fixedMaxID{id: "EID04"}, fixedMaxID{}, fixedMaxID{})
	first, err := alloc.NextEventID(context.Background(), nil)
	require.NoError(t, err)
	second, err := alloc.NextEventID(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIDAllocatorMalformed(t *testing.T) {
	for _, bad := range []string{"E01", "EIDx1", "EID", "EID-1", "EID 1", "eid01"} {
		t.Run(bad, func(t *testing.T) {
			alloc := NewIDAllocator(fixedMaxID{id: bad}, fixedMaxID{}, fixedMaxID{})
			_, err := alloc.NextEventID(context.Background(), nil)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrIntegrity.Code, appErr.Code)
			assert.Equal(t, bad, appErr.Details["id"])
		})
	}
}

func TestIDAllocatorReadFailure(t *testing.T) {
	alloc := NewIDAllocator(fixedMaxID{err: errors.New("boom")}, fixedMaxID{}, fixedMaxID{})
	_, err := alloc.NextEventID(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestFormatAndParseID(t *testing.T) {
	assert.Equal(t, "EID05", FormatID(EventIDKind, 5))
	assert.Equal(t, "FILEID-005", FormatID(FileIDKind, 5))
	assert.Equal(t, "FEEDBACK123", FormatID(FeedbackIDKind, 123))

	n, err := ParseID(FileIDKind, "FILEID-010")
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	_, err = ParseID(FileIDKind, "FILEID-99999999999999999999999")
	assert.Error(t, err)
}
