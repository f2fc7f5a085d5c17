package chat

import (
	"context"
	"testing"

	"CBProject/module/chat/model"
	"CBProject/tools/errs"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pipelineEnv struct {
	reg    *Registry
	router *Router
	fan    *Fanout
	pipe   *Pipeline

	users  *fakeUserStore
	chats  *fakeChatStore
	msgs   *fakeMessageStore
	notifs *fakeNotificationStore

	alice, bob *model.User
	chat       *model.Chat
}

// newPipelineEnv wires the full delivery path with in-memory stores and a
// single fan-out worker so delivery order is deterministic.
func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	alice := &model.User{ID: primitive.NewObjectID(), Name: "Alice"}
	bob := &model.User{ID: primitive.NewObjectID(), Name: "Bob", AvatarURL: "https://cdn/bob.png"}
	chat := &model.Chat{
		ID:      primitive.NewObjectID(),
		Type:    model.ChatTypePrivate,
		Members: []primitive.ObjectID{alice.ID, bob.ID},
	}

	env := &pipelineEnv{
		users:  newFakeUserStore(alice, bob),
		chats:  newFakeChatStore(chat),
		msgs:   &fakeMessageStore{},
		notifs: newFakeNotificationStore(),
		alice:  alice,
		bob:    bob,
		chat:   chat,
	}
	env.fan = NewFanout(1, 64)
	t.Cleanup(env.fan.Close)
	env.router = NewRouter(env.fan)
	env.reg = NewRegistry("gw-test")
	notifier := NewNotifier(env.router, env.notifs)
	env.pipe = NewPipeline(env.reg, env.router, env.users, env.chats, env.msgs, notifier)
	return env
}

// connect registers a client for the user and joins its personal group plus
// the shared chat group, the way the live handlers do.
func (e *pipelineEnv) connect(connID string, u *model.User) *Client {
	c := newTestClient(connID)
	e.reg.Register(c, u.HexID())
	e.router.Join(c, UserGroup(u.HexID()))
	e.router.Join(c, ChatGroup(e.chat.HexID()))
	return c
}

func TestHandleSendRequiresRegistration(t *testing.T) {
	env := newPipelineEnv(t)
	c := newTestClient("anon")

	msg, err := env.pipe.HandleSend(context.Background(), c, SendMessagePayload{
		ChatID: env.chat.HexID(),
		Text:   "hello",
	}, "ack-1")

	require.Nil(t, msg)
	require.ErrorIs(t, err, errs.ErrNotRegistered)
	require.Zero(t, env.msgs.count())

	f := recvPayload(t, c)
	require.Equal(t, EvtMessageError, f.Event)
	require.Equal(t, "ack-1", f.AckID)
	require.EqualValues(t, errs.CodeNotRegistered, f.Data["code"])
}

func TestHandleSendDeliversAndAcks(t *testing.T) {
	env := newPipelineEnv(t)
	aliceConn := env.connect("c-alice", env.alice)
	bobConn := env.connect("c-bob", env.bob)

	msg, err := env.pipe.HandleSend(context.Background(), aliceConn, SendMessagePayload{
		ChatID: env.chat.HexID(),
		Text:   "hello",
	}, "ack-7")
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Equal(t, 1, env.msgs.count())
	require.Equal(t, model.MsgKindText, msg.Kind)

	// Bob sees the live message, enriched with Alice's display name.
	live := recvPayload(t, bobConn)
	require.Equal(t, EvtMessage, live.Event)
	require.Equal(t, "hello", live.Data["text"])
	sender := live.Data["sender"].(map[string]any)
	require.Equal(t, "Alice", sender["name"])
	require.Equal(t, env.alice.HexID(), sender["id"])

	// Alice gets the distinct ack with her correlation id, never the
	// broadcast copy.
	ack := recvPayload(t, aliceConn)
	require.Equal(t, EvtMessageSaved, ack.Event)
	require.Equal(t, "ack-7", ack.AckID)
	require.Equal(t, msg.HexID(), ack.Data["id"])

	// Bob also gets the unread notification with the preview.
	notif := recvPayload(t, bobConn)
	require.Equal(t, EvtNotification, notif.Event)
	data := notif.Data["data"].(map[string]any)
	require.Equal(t, "hello", data["preview"])
	require.Equal(t, env.chat.HexID(), data["chatId"])

	requireNoPayload(t, aliceConn)
	require.Equal(t, 1, env.notifs.countPersisted())
	require.Equal(t, msg.HexID(), env.chats.latestUpdates[env.chat.HexID()])
}

func TestHandleSendPersistenceFailure(t *testing.T) {
	env := newPipelineEnv(t)
	aliceConn := env.connect("c-alice", env.alice)
	bobConn := env.connect("c-bob", env.bob)
	env.msgs.insertErr = errors.New("disk full")

	msg, err := env.pipe.HandleSend(context.Background(), aliceConn, SendMessagePayload{
		ChatID: env.chat.HexID(),
		Text:   "hello",
	}, "ack-9")

	require.Nil(t, msg)
	require.ErrorIs(t, err, errs.ErrPersistenceFailure)

	f := recvPayload(t, aliceConn)
	require.Equal(t, EvtMessageError, f.Event)
	require.Equal(t, "ack-9", f.AckID)
	require.EqualValues(t, errs.CodePersistenceFailure, f.Data["code"])

	// Nothing reached the room and nothing was fanned out.
	requireNoPayload(t, bobConn)
	require.Zero(t, env.notifs.countPersisted())
}

func TestHandleSendSenderLookupFailureAbortsBeforeBroadcast(t *testing.T) {
	env := newPipelineEnv(t)
	aliceConn := env.connect("c-alice", env.alice)
	bobConn := env.connect("c-bob", env.bob)
	env.users.displayErr = errors.New("users collection down")

	msg, err := env.pipe.HandleSend(context.Background(), aliceConn, SendMessagePayload{
		ChatID: env.chat.HexID(),
		Text:   "hello",
	}, "ack-3")

	require.Nil(t, msg)
	require.ErrorIs(t, err, errs.ErrPersistenceFailure)
	// The durable record stays; only delivery was aborted.
	require.Equal(t, 1, env.msgs.count())

	f := recvPayload(t, aliceConn)
	require.Equal(t, EvtMessageError, f.Event)
	requireNoPayload(t, bobConn)
}

func TestHandleSendImageKindDefaulting(t *testing.T) {
	env := newPipelineEnv(t)
	aliceConn := env.connect("c-alice", env.alice)
	bobConn := env.connect("c-bob", env.bob)

	msg, err := env.pipe.HandleSend(context.Background(), aliceConn, SendMessagePayload{
		ChatID:   env.chat.HexID(),
		ImageURL: "https://cdn/pic.png",
	}, "")
	require.NoError(t, err)
	require.Equal(t, model.MsgKindImage, msg.Kind)
	require.Empty(t, msg.Text)

	live := recvPayload(t, bobConn)
	require.Equal(t, "https://cdn/pic.png", live.Data["imageUrl"])

	notif := recvPayload(t, bobConn)
	data := notif.Data["data"].(map[string]any)
	require.Equal(t, "image received", data["preview"])

	recvPayload(t, aliceConn) // drain the ack
}

func TestHandleSendOfflineRecipientStillGetsRecord(t *testing.T) {
	env := newPipelineEnv(t)
	aliceConn := env.connect("c-alice", env.alice)
	// Bob never connects.

	_, err := env.pipe.HandleSend(context.Background(), aliceConn, SendMessagePayload{
		ChatID: env.chat.HexID(),
		Text:   "are you there?",
	}, "ack-1")
	require.NoError(t, err)

	ack := recvPayload(t, aliceConn)
	require.Equal(t, EvtMessageSaved, ack.Event)

	// The unread record waits for the REST surface.
	require.Equal(t, 1, env.notifs.countPersisted())
	rows, err := env.notifs.ListByUser(context.Background(), env.bob.HexID(), 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.False(t, rows[0].Read)
	require.Equal(t, "are you there?", rows[0].Data.Preview)
}
