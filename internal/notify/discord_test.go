package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniversariantes/api/internal/models"
)

var ana = models.Birthday{
	ID:          "id-1",
	RealName:    "Ana Silva",
	DisplayName: "Ana",
	ChatHandle:  "@ana",
	BirthDate:   "2000-07-04",
}

func newTestNotifier(url string) *DiscordNotifier {
	logger := zerolog.Nop()
	return NewDiscordNotifier(DiscordConfig{
		WebhookURL: url,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Timeout:    time.Second,
	}, &logger)
}

func TestSendPostsContentPayload(t *testing.T) {
	var gotContent atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		gotContent.Store(payload.Content)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	err := newTestNotifier(ts.URL).Send(context.Background(), ana)
	require.NoError(t, err)

	content, _ := gotContent.Load().(string)
	assert.Contains(t, content, "Ana")
	assert.Contains(t, content, "Ana Silva")
	assert.Contains(t, content, "@ana")
}

func TestSendRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := newTestNotifier(ts.URL).Send(context.Background(), ana)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	err := newTestNotifier(ts.URL).Send(context.Background(), ana)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestSendDoesNotRetryPermanentFailures(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	err := newTestNotifier(ts.URL).Send(context.Background(), ana)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendHonorsContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	logger := zerolog.Nop()
	n := NewDiscordNotifier(DiscordConfig{
		WebhookURL: ts.URL,
		MaxRetries: 5,
		BaseDelay:  time.Hour,
		Timeout:    time.Second,
	}, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.Send(ctx, ana)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
