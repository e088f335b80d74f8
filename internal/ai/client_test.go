package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatRequest() GenerateRequest {
	return GenerateRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
}

func TestClient_GenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-4o-mini", req.Model)

		w.Header().Set("X-Request-Id", "req-42")
		_ = json.NewEncoder(w).Encode(GenerateResponse{
			ID:      "gen-1",
			Choices: []Choice{{Message: Message{Role: "assistant", Content: `{"ok":true}`}}},
			Usage:   Usage{TotalTokens: 12},
		})
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, 2*time.Second)
	resp, err := c.Generate(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text())
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestClient_NeverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "overloaded"}})
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, 2*time.Second)
	_, err := c.Generate(context.Background(), chatRequest())

	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "overloaded", se.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		header http.Header
		check  func(t *testing.T, err error)
	}{
		{
			name:   "auth",
			status: http.StatusUnauthorized,
			body:   map[string]any{"error": map[string]any{"message": "invalid key"}},
			check: func(t *testing.T, err error) {
				var target *AuthError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "rate limit with retry-after",
			status: http.StatusTooManyRequests,
			body:   map[string]any{"error": map[string]any{"message": "slow down"}},
			header: http.Header{"Retry-After": []string{"7"}},
			check: func(t *testing.T, err error) {
				var target *RateLimitError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 7*time.Second, target.RetryAfter)
			},
		},
		{
			name:   "model not found",
			status: http.StatusNotFound,
			body:   map[string]any{"error": map[string]any{"message": "model not found", "code": "model_not_found"}},
			check: func(t *testing.T, err error) {
				var target *ModelNotFoundError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   map[string]any{"error": map[string]any{"message": "bad"}},
			check: func(t *testing.T, err error) {
				var target *BadRequestError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "quota",
			status: http.StatusPaymentRequired,
			body:   map[string]any{"error": map[string]any{"message": "insufficient quota"}},
			check: func(t *testing.T, err error) {
				var target *QuotaExceededError
				assert.ErrorAs(t, err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, vals := range tt.header {
					for _, v := range vals {
						w.Header().Add(k, v)
					}
				}
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			_, err := NewClient("key", srv.URL, 2*time.Second).Generate(context.Background(), chatRequest())
			require.Error(t, err)
			tt.check(t, err)

			var apiErr *APIError
			assert.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient("", "http://unused", time.Second).Generate(context.Background(), chatRequest())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient("key", url, time.Second).Generate(context.Background(), chatRequest())
	var target *UnreachableError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, url, target.Host)
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient("key", srv.URL, 5*time.Second).Generate(ctx, chatRequest())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
