package chat

import (
	"context"

	"CBProject/logger"
	"CBProject/module/chat/model"
	"CBProject/service/storage"
	"CBProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pipeline turns a client-submitted message intent into a persisted,
// broadcast, acknowledged fact. Failures before broadcast abort the whole
// operation and surface only to the sender; failures after the ack never
// retract what was already delivered.
type Pipeline struct {
	reg      *Registry
	router   *Router
	users    model.IUserStore
	chats    model.IChatStore
	msgs     model.IMessageStore
	notifier *Notifier

	cacheRecent bool
}

func NewPipeline(reg *Registry, router *Router, users model.IUserStore, chats model.IChatStore, msgs model.IMessageStore, notifier *Notifier) *Pipeline {
	return &Pipeline{
		reg:      reg,
		router:   router,
		users:    users,
		chats:    chats,
		msgs:     msgs,
		notifier: notifier,
	}
}

// WithRecentCache enables the best-effort redis recent-message mirror.
func (p *Pipeline) WithRecentCache() *Pipeline {
	p.cacheRecent = true
	return p
}

// HandleSend runs the full send operation for one inbound sendMessage
// event. The returned message is the persisted record (nil on failure);
// the error mirrors what was signaled to the sender.
func (p *Pipeline) HandleSend(ctx context.Context, c *Client, in SendMessagePayload, ackID string) (*model.Message, error) {
	senderID := p.reg.IdentityOf(c)
	if senderID == "" {
		return p.fail(c, errs.ErrNotRegistered, ackID)
	}

	kind := in.Kind
	if kind == "" {
		if in.ImageURL != "" {
			kind = model.MsgKindImage
		} else {
			kind = model.MsgKindText
		}
	}

	senderOID, err := primitive.ObjectIDFromHex(senderID)
	if err != nil {
		return p.fail(c, errs.ErrPersistenceFailure.WithDetail("malformed sender id"), ackID)
	}

	chat, err := p.chats.FindByID(ctx, in.ChatID)
	if err != nil {
		return p.fail(c, errs.ErrPersistenceFailure.WithDetail("chat lookup failed"), ackID)
	}

	msg := &model.Message{
		Chat:   chat.ID,
		Sender: senderOID,
		Kind:   kind,
	}
	if kind == model.MsgKindImage {
		msg.ImageURL = in.ImageURL
	} else {
		msg.Text = in.Text
	}

	if err := p.msgs.Insert(ctx, msg); err != nil {
		logger.Errorf("pipeline: persist message chat=%s sender=%s: %v", in.ChatID, senderID, err)
		return p.fail(c, errs.ErrPersistenceFailure, ackID)
	}

	// Best-effort from here until the broadcast: the message is durable and
	// neither the pointer nor the cache may abort delivery.
	if err := p.chats.UpdateLatestMessage(ctx, chat.HexID(), msg.HexID()); err != nil {
		logger.Warnf("pipeline: latest-message pointer chat=%s: %v", chat.HexID(), err)
	}
	if p.cacheRecent {
		if err := storage.AppendRecent(chat.HexID(), storage.RecentMsg{
			ID:        msg.HexID(),
			Sender:    senderID,
			Kind:      msg.Kind,
			Preview:   BuildPreview(msg.Kind, msg.Text),
			CreatedAt: unixMS(msg.CreatedAt),
		}); err != nil {
			logger.Debug("pipeline: recent cache append failed: " + err.Error())
		}
	}

	sender, err := p.users.FindDisplay(ctx, senderID)
	if err != nil {
		// Nothing was broadcast yet; the durable record stays but the
		// operation fails to the sender.
		logger.Errorf("pipeline: sender display lookup user=%s: %v", senderID, err)
		return nil, p.failErr(c, errs.ErrPersistenceFailure.WithDetail("sender lookup failed"), ackID)
	}

	meta := SenderMeta{ID: senderID, Name: sender.Name, AvatarURL: sender.AvatarURL}
	payload := MessagePayload{
		ID:        msg.HexID(),
		ChatID:    chat.HexID(),
		Sender:    meta,
		Kind:      msg.Kind,
		Text:      msg.Text,
		ImageURL:  msg.ImageURL,
		CreatedAt: unixMS(msg.CreatedAt),
	}

	// Broadcast to everyone else in the room, then ack the sender with a
	// distinct event so it never sees its own message twice.
	p.router.BroadcastToChat(chat.HexID(), c, BuildMessageFrame(payload))
	c.Enqueue(BuildMessageSavedFrame(payload, ackID))

	// Fan-out is part of the same logical operation but can no longer fail
	// it; the sender has already been told "saved".
	if err := p.notifier.HandleFanout(ctx, msg, chat.MemberIDs(), meta); err != nil {
		logger.Errorf("pipeline: fanout chat=%s msg=%s: %v", chat.HexID(), msg.HexID(), err)
	}

	return msg, nil
}

func (p *Pipeline) fail(c *Client, cerr *errs.CodeError, ackID string) (*model.Message, error) {
	return nil, p.failErr(c, cerr, ackID)
}

func (p *Pipeline) failErr(c *Client, cerr *errs.CodeError, ackID string) error {
	c.Enqueue(BuildMessageErrorFrame(cerr, ackID))
	return cerr
}
