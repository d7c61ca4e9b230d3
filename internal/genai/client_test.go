package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionResponse(text string) string {
	raw, _ := json.Marshal(chatResponse{
		Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: text}}},
	})
	return string(raw)
}

func TestComplete_Success(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionResponse("fresh caption"))) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})

	text, err := client.Complete(context.Background(), "rewrite this post", Options{Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "fresh caption", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Equal(t, "rewrite this post", gotReq.Messages[0].Content)
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid model"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.Complete(context.Background(), "prompt", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestComplete_DefaultModelFromConfig(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionResponse("ok"))) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})

	_, err := client.Complete(context.Background(), "prompt", Options{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", gotReq.Model, "per-call model overrides the configured default")

	_, err = client.Complete(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.Complete(context.Background(), "prompt", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
