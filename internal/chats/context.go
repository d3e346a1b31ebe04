package chats

import "context"

type contextKey string

const chatCtxKey contextKey = "chat"

func SetChatInContext(ctx context.Context, chat *Chat) context.Context {
	return context.WithValue(ctx, chatCtxKey, chat)
}

func GetChatFromContext(ctx context.Context) *Chat {
	chat, _ := ctx.Value(chatCtxKey).(*Chat)
	return chat
}
