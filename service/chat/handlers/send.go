package handlers

import (
	"context"

	"CBProject/service/chat"
	"CBProject/tools/decode"
	"CBProject/tools/errs"
)

// SendMessageHandler feeds an inbound message into the persistence and
// fan-out pipeline. Failures are reported back on the same connection as
// a message-error frame by the pipeline itself.
type SendMessageHandler struct{}

func (SendMessageHandler) Event() string { return chat.EvtSendMessage }

func (SendMessageHandler) Handle(ctx context.Context, s *chat.Server, f *chat.Frame, c *chat.Client) error {
	pl, err := decode.Map[chat.SendMessagePayload](f.Data)
	if err != nil {
		return errs.NewCodeError(errs.CodeBadRequest, "invalid sendMessage payload").WithDetail(err.Error())
	}

	_, err = s.Pipeline().HandleSend(ctx, c, *pl, f.AckID)
	return err
}
