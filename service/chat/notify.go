package chat

import (
	"context"

	"CBProject/logger"
	"CBProject/module/chat/model"
	"CBProject/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	previewMaxRunes = 80
	previewEllipsis = "…"
	imagePreview    = "image received"
)

// BuildPreview produces the short display summary carried by notifications:
// the first 80 characters of a text body (ellipsis-terminated when cut), a
// fixed marker for image payloads. An empty text body yields an empty
// preview.
func BuildPreview(kind, text string) string {
	if kind != model.MsgKindText {
		return imagePreview
	}
	runes := []rune(text)
	if len(runes) <= previewMaxRunes {
		return text
	}
	return string(runes[:previewMaxRunes]) + previewEllipsis
}

// Notifier turns one persisted message into unread notification records for
// every chat member except the sender, and pushes each persisted record to
// the recipient's personal group. Recipients with no live connection simply
// accumulate unread records for the REST surface.
type Notifier struct {
	router *Router
	notifs model.INotificationStore
}

func NewNotifier(router *Router, notifs model.INotificationStore) *Notifier {
	return &Notifier{router: router, notifs: notifs}
}

// HandleFanout runs after the send has already been acknowledged; whatever
// goes wrong here is reported to the caller for logging and nothing else.
func (n *Notifier) HandleFanout(ctx context.Context, msg *model.Message, memberIDs []string, actor SenderMeta) error {
	preview := BuildPreview(msg.Kind, msg.Text)

	records := make([]*model.Notification, 0, len(memberIDs))
	for _, member := range memberIDs {
		if member == actor.ID {
			continue
		}
		uid, err := primitive.ObjectIDFromHex(member)
		if err != nil {
			logger.Warnf("fanout: bad member id %q in chat %s", member, msg.Chat.Hex())
			continue
		}
		records = append(records, &model.Notification{
			User:  uid,
			Actor: msg.Sender,
			Type:  model.NotifTypeMessage,
			Data: model.NotificationData{
				ChatID:  msg.Chat.Hex(),
				Preview: preview,
			},
		})
	}
	if len(records) == 0 {
		return nil
	}

	persisted, err := n.notifs.InsertBatch(ctx, records)

	// The batch is not atomic; push exactly what made it to disk.
	for _, rec := range persisted {
		frame := BuildNotificationFrame(NotificationPayload{
			ID:        rec.HexID(),
			Actor:     actor,
			Type:      rec.Type,
			Data:      NotificationData{ChatID: rec.Data.ChatID, Preview: rec.Data.Preview},
			CreatedAt: unixMS(rec.CreatedAt),
		})
		n.router.PushToUser(rec.User.Hex(), frame)
	}

	if err != nil {
		return errs.ErrFanoutFailure.WithDetail(errors.WithMessage(err, "notification batch").Error())
	}
	return nil
}
