package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *Bus {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return &Bus{validator: validator.New(), logger: logger}
}

func TestHandleRecommendByUser_MissingUserIDIsDropped(t *testing.T) {
	b := testBus()

	_, ok := b.handleRecommendByUser(context.Background(), json.RawMessage(`{}`), func(ctx context.Context, userID int64) (any, error) {
		t.Fatal("handler should not be called for an invalid request")
		return nil, nil
	})
	assert.False(t, ok)
}

func TestHandleRecommendByUser_MalformedBodyIsDropped(t *testing.T) {
	b := testBus()

	_, ok := b.handleRecommendByUser(context.Background(), json.RawMessage(`not json`), func(ctx context.Context, userID int64) (any, error) {
		t.Fatal("handler should not be called for a malformed body")
		return nil, nil
	})
	assert.False(t, ok)
}

func TestHandleRecommendByUser_ValidRequestCallsHandler(t *testing.T) {
	b := testBus()

	var gotUserID int64
	response, ok := b.handleRecommendByUser(context.Background(), json.RawMessage(`{"user_id": 42}`), func(ctx context.Context, userID int64) (any, error) {
		gotUserID = userID
		return []string{"ok"}, nil
	})

	require.True(t, ok)
	assert.Equal(t, int64(42), gotUserID)
	assert.Equal(t, []string{"ok"}, response)
}

func TestHandleRecommendByUser_HandlerErrorRepliesWithEmptyList(t *testing.T) {
	b := testBus()

	response, ok := b.handleRecommendByUser(context.Background(), json.RawMessage(`{"user_id": 1}`), func(ctx context.Context, userID int64) (any, error) {
		return nil, assertErr("index down")
	})

	require.True(t, ok)
	assert.Equal(t, []any{}, response)
}

func TestHandleSetUserDescription_MissingFieldsIsDropped(t *testing.T) {
	b := testBus()

	_, ok := b.handleSetUserDescription(context.Background(), json.RawMessage(`{"user_id": 1}`), func(ctx context.Context, userID int64, description string) (any, error) {
		t.Fatal("handler should not be called for an invalid request")
		return nil, nil
	})
	assert.False(t, ok)
}

func TestHandleSetUserDescription_ValidRequestCallsHandler(t *testing.T) {
	b := testBus()

	var gotDescription string
	_, ok := b.handleSetUserDescription(context.Background(), json.RawMessage(`{"user_id": 1, "description": "likes jazz"}`), func(ctx context.Context, userID int64, description string) (any, error) {
		gotDescription = description
		return map[string]bool{"status": true}, nil
	})

	require.True(t, ok)
	assert.Equal(t, "likes jazz", gotDescription)
}

func TestHandleSetUserDescription_HandlerErrorRepliesFalse(t *testing.T) {
	b := testBus()

	response, ok := b.handleSetUserDescription(context.Background(), json.RawMessage(`{"user_id": 1, "description": "x"}`), func(ctx context.Context, userID int64, description string) (any, error) {
		return nil, assertErr("catalog write failed")
	})

	require.True(t, ok)
	assert.Equal(t, map[string]bool{"status": false}, response)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
