package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewClient("", DefaultModel, 0)
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		client, err := NewClient("test-key", "", 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, client.Model())
		assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	})
}

func TestGenerateContent(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			var req geminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Contents, 1)
			assert.Equal(t, "shorten this", req.Contents[0].Parts[0].Text)

			resp := geminiResponse{}
			resp.Candidates = []struct {
				Content      geminiContent `json:"content"`
				FinishReason string        `json:"finishReason"`
			}{
				{Content: geminiContent{Parts: []geminiPart{{Text: "SHORT: England v France\nTYPE: rugby"}}}, FinishReason: "STOP"},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client, err := NewClient("test-key", DefaultModel, 5*time.Second)
		require.NoError(t, err)
		client.SetBaseURL(server.URL)

		text, err := client.GenerateContent(context.Background(), "shorten this")
		require.NoError(t, err)
		assert.Contains(t, text, "SHORT: England v France")
	})

	t.Run("429 maps to ErrQuota", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewClient("test-key", DefaultModel, 5*time.Second)
		require.NoError(t, err)
		client.SetBaseURL(server.URL)

		_, err = client.GenerateContent(context.Background(), "prompt")
		assert.True(t, errors.Is(err, ErrQuota))
	})

	t.Run("RESOURCE_EXHAUSTED body maps to ErrQuota", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
		}))
		defer server.Close()

		client, err := NewClient("test-key", DefaultModel, 5*time.Second)
		require.NoError(t, err)
		client.SetBaseURL(server.URL)

		_, err = client.GenerateContent(context.Background(), "prompt")
		assert.True(t, errors.Is(err, ErrQuota))
	})

	t.Run("server error returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
		}))
		defer server.Close()

		client, err := NewClient("test-key", DefaultModel, 5*time.Second)
		require.NoError(t, err)
		client.SetBaseURL(server.URL)

		_, err = client.GenerateContent(context.Background(), "prompt")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrQuota))
	})

	t.Run("empty candidates returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[]}`))
		}))
		defer server.Close()

		client, err := NewClient("test-key", DefaultModel, 5*time.Second)
		require.NoError(t, err)
		client.SetBaseURL(server.URL)

		_, err = client.GenerateContent(context.Background(), "prompt")
		assert.Error(t, err)
	})
}
