//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCRUD(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "chats@example.com", "password123")
	token := LoginUser(t, env, "chats@example.com", "password123")

	var chatID string

	t.Run("create chat", func(t *testing.T) {
		chatID = CreateChat(t, env, token, "My first chat")
		assert.NotEmpty(t, chatID)
	})

	t.Run("list chats", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/chats", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		items := result["data"].([]any)
		assert.Len(t, items, 1)
	})

	t.Run("rename chat", func(t *testing.T) {
		body := map[string]string{"title": "Renamed"}
		resp := DoRequest(t, env, "PATCH", "/api/v1/chats/"+chatID, body, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		getResp := DoRequest(t, env, "GET", "/api/v1/chats/"+chatID, nil, token)
		result := ParseResponse(t, getResp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "Renamed", data["title"])
	})

	t.Run("messages in chat", func(t *testing.T) {
		body := map[string]string{"role": "user", "content": "hello"}
		resp := DoRequest(t, env, "POST", "/api/v1/chats/"+chatID+"/messages", body, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		listResp := DoRequest(t, env, "GET", "/api/v1/chats/"+chatID+"/messages", nil, token)
		require.Equal(t, http.StatusOK, listResp.StatusCode)
		result := ParseResponse(t, listResp)
		items := result["data"].([]any)
		assert.Len(t, items, 1)
	})

	t.Run("delete chat cascades messages", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/chats/"+chatID, nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		getResp := DoRequest(t, env, "GET", "/api/v1/chats/"+chatID, nil, token)
		assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}

func TestChatOwnership(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "owner@example.com", "password123")
	ownerToken := LoginUser(t, env, "owner@example.com", "password123")
	chatID := CreateChat(t, env, ownerToken, "Owner's chat")

	RegisterUser(t, env, "intruder@example.com", "password123")
	intruderToken := LoginUser(t, env, "intruder@example.com", "password123")

	t.Run("other user cannot read the chat", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/chats/"+chatID, nil, intruderToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("other user cannot post messages", func(t *testing.T) {
		body := map[string]string{"role": "user", "content": "sneaky"}
		resp := DoRequest(t, env, "POST", "/api/v1/chats/"+chatID+"/messages", body, intruderToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("other user cannot delete the chat", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/chats/"+chatID, nil, intruderToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
