package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete_Success(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  Take one slow breath with me.  "}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "", 5*time.Second)
	reply, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "I feel anxious"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Take one slow breath with me.", reply)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, defaultOpenAIModel, gotReq.Model)
	assert.InDelta(t, chatTemperature, gotReq.Temperature, 0.0001)
	assert.Equal(t, chatMaxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, RoleUser, gotReq.Messages[1].Role)
}

func TestOpenAIComplete_MissingAPIKey(t *testing.T) {
	client := NewOpenAIClient("", "http://unused", "", time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestOpenAIComplete_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "", time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "", time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestOpenAIComplete_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "", time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestOpenAIComplete_CustomModel(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "gpt-4o", time.Second)
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", gotReq.Model)
}
