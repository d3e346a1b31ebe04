package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseSSE_EmitsDataPayloads(t *testing.T) {
	stream := strings.Join([]string{
		": comment line",
		"data: {\"a\":1}",
		"",
		"data: {\"a\":2}",
		"",
		"data: [DONE]",
		"",
	}, "\n")

	var got []string
	err := parseSSE(strings.NewReader(stream), func(data string) error {
		got = append(got, data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, got)
}

func TestParseSSE_MultilineData(t *testing.T) {
	stream := "data: {\"a\":\ndata: 1}\n\n"

	var got []string
	err := parseSSE(strings.NewReader(stream), func(data string) error {
		got = append(got, data)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), gjson.Get(got[0], "a").Int())
}

func TestParseSSE_CallbackErrorStopsStream(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\n"

	calls := 0
	err := parseSSE(strings.NewReader(stream), func(string) error {
		calls++
		return fmt.Errorf("stop")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGroqClient_StreamCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		payload := string(body)
		assert.Equal(t, "llama-3.1-8b-instant", gjson.Get(payload, "model").String())
		assert.True(t, gjson.Get(payload, "stream").Bool())
		assert.Equal(t, "user", gjson.Get(payload, "messages.0.role").String())
		assert.Equal(t, "hi", gjson.Get(payload, "messages.0.content").String())

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewGroqClient("test-key", srv.URL, 5*time.Second)

	var deltas []string
	text, err := client.StreamCompletion(context.Background(), "llama-3.1-8b-instant",
		[]PromptMessage{{Role: "user", Content: "hi"}},
		func(d string) error {
			deltas = append(deltas, d)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestGroqClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"model overloaded"}}`)
	}))
	defer srv.Close()

	client := NewGroqClient("test-key", srv.URL, 5*time.Second)

	_, err := client.StreamCompletion(context.Background(), "llama-3.1-8b-instant",
		[]PromptMessage{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGeminiClient_StreamCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		body, _ := io.ReadAll(r.Body)
		payload := string(body)
		assert.Equal(t, "user", gjson.Get(payload, "contents.0.role").String())
		assert.Equal(t, "model", gjson.Get(payload, "contents.1.role").String())
		assert.Equal(t, "earlier reply", gjson.Get(payload, "contents.1.parts.0.text").String())

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hi \"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"there\"}]}}]}\n\n")
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", srv.URL, 5*time.Second)

	history := []PromptMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "earlier reply"},
		{Role: "user", Content: "again"},
	}

	text, err := client.StreamCompletion(context.Background(), "gemini-2.0-flash", history,
		func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
}
