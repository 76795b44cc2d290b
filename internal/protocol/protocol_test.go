package protocol

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	apperrors "github.com/Tyrowin/relaychat/internal/errors"
	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/stretchr/testify/require"
)

func TestDecode_Publish(t *testing.T) {
	req := require.New(t)

	evt, err := Decode([]byte(`{"event":"message:send","data":{"sender":"alice","content":"Hello world"}}`))

	req.NoError(err)
	publish, ok := evt.(Publish)
	req.True(ok)
	req.Equal(Publish{Sender: "alice", Content: "Hello world"}, publish)
	req.Equal(EventPublish, publish.EventName())
}

func TestDecode_MessageCreatedRoundTrip(t *testing.T) {
	req := require.New(t)
	msg := message.Message{ID: "id-1", Sender: "bob", Content: "hi", Timestamp: 1700000000000}

	raw, err := Encode(MessageCreated{Message: msg})
	req.NoError(err)
	req.JSONEq(`{"event":"message:receive","data":{"id":"id-1","sender":"bob","content":"hi","timestamp":1700000000000}}`, string(raw))

	evt, err := Decode(raw)
	req.NoError(err)
	created, ok := evt.(MessageCreated)
	req.True(ok)
	req.Equal(msg, created.Message)
}

func TestDecode_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "not json", raw: `hello`, want: apperrors.ErrMalformedFrame},
		{name: "missing event", raw: `{"data":{"sender":"a","content":"b"}}`, want: apperrors.ErrMalformedFrame},
		{name: "unknown event", raw: `{"event":"user:joined","data":"alice"}`, want: apperrors.ErrUnknownEvent},
		{name: "missing data", raw: `{"event":"message:send"}`, want: apperrors.ErrInvalidPayload},
		{name: "null data", raw: `{"event":"message:send","data":null}`, want: apperrors.ErrInvalidPayload},
		{name: "missing content", raw: `{"event":"message:send","data":{"sender":"alice"}}`, want: apperrors.ErrInvalidPayload},
		{name: "missing sender", raw: `{"event":"message:send","data":{"content":"hi"}}`, want: apperrors.ErrInvalidPayload},
		{name: "wrong type", raw: `{"event":"message:send","data":{"sender":42,"content":"hi"}}`, want: apperrors.ErrInvalidPayload},
		{name: "message without id", raw: `{"event":"message:receive","data":{"sender":"a","content":"b","timestamp":1}}`, want: apperrors.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode([]byte(tt.raw))
			require.Nil(t, evt)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDecode_ContentTooLong(t *testing.T) {
	long := make([]byte, MaxContentLength+1)
	for i := range long {
		long[i] = 'x'
	}
	raw, err := Encode(Publish{Sender: "alice", Content: string(long)})
	require.NoError(t, err)

	_, err = Decode(raw)
	require.ErrorIs(t, err, apperrors.ErrInvalidPayload)
}

func TestSplitBatch(t *testing.T) {
	req := require.New(t)

	frames := SplitBatch([]byte("{\"a\":1}\n{\"b\":2}\n\n{\"c\":3}\n"))

	req.Len(frames, 3)
	req.Equal(`{"a":1}`, string(frames[0]))
	req.Equal(`{"c":3}`, string(frames[2]))
	req.Empty(SplitBatch(nil))
}

func TestPublish_ValidateTagsMatchLimits(t *testing.T) {
	publish := reflect.TypeOf(Publish{})

	for field, limit := range map[string]int{"Sender": MaxSenderLength, "Content": MaxContentLength} {
		f, ok := publish.FieldByName(field)
		require.True(t, ok)
		require.Contains(t, strings.Split(f.Tag.Get("validate"), ","), "max="+strconv.Itoa(limit), field)
	}
}

func TestMaxFrameSize_CoversLargestValidPublish(t *testing.T) {
	req := require.New(t)
	// Given the longest accepted values, in the widest runes JSON can produce
	largest := Publish{
		Sender:  strings.Repeat("\U0001F600", MaxSenderLength),
		Content: strings.Repeat("\x00", MaxContentLength),
	}

	raw, err := Encode(largest)
	req.NoError(err)

	// Then the frame still decodes and fits the transport limit
	_, err = Decode(raw)
	req.NoError(err)
	req.LessOrEqual(len(raw), MaxFrameSize)
}
