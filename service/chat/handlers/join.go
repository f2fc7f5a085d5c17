package handlers

import (
	"context"
	"strings"

	"CBProject/service/chat"
	"CBProject/tools/decode"
	"CBProject/tools/errs"
)

// JoinChatHandler subscribes a connection to a chat group. Joining twice
// is a no-op; membership lasts until the connection closes.
type JoinChatHandler struct{}

func (JoinChatHandler) Event() string { return chat.EvtJoinChat }

func (JoinChatHandler) Handle(ctx context.Context, s *chat.Server, f *chat.Frame, c *chat.Client) error {
	pl, err := decode.Map[chat.JoinChatPayload](f.Data)
	if err != nil {
		return errs.NewCodeError(errs.CodeBadRequest, "invalid joinChat payload").WithDetail(err.Error())
	}
	chatID := strings.TrimSpace(pl.ChatID)
	if chatID == "" {
		return errs.NewCodeError(errs.CodeBadRequest, "chatId required")
	}

	s.Router().Join(c, chat.ChatGroup(chatID))
	return nil
}
