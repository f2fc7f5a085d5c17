package handlers

import (
	"context"
	"strings"

	"CBProject/logger"
	"CBProject/service/chat"
	"CBProject/tools/decode"
	"CBProject/tools/errs"
)

// RegisterHandler binds a connection to a user identity and joins the
// user's personal group so direct pushes reach every live connection.
type RegisterHandler struct{}

func (RegisterHandler) Event() string { return chat.EvtRegister }

func (RegisterHandler) Handle(ctx context.Context, s *chat.Server, f *chat.Frame, c *chat.Client) error {
	pl, err := decode.Map[chat.RegisterPayload](f.Data)
	if err != nil {
		return errs.NewCodeError(errs.CodeBadRequest, "invalid register payload").WithDetail(err.Error())
	}
	uid := strings.TrimSpace(pl.UserID)
	if uid == "" {
		return errs.NewCodeError(errs.CodeBadRequest, "userId required")
	}

	prev := s.Reg().Register(c, uid)
	if prev != "" && prev != uid {
		s.Router().Leave(c, chat.UserGroup(prev))
	}
	s.Router().Join(c, chat.UserGroup(uid))

	logger.Infof("[WS] registered conn=%s user=%s", c.ConnID, uid)
	return nil
}
