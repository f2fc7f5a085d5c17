package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvPayload(t *testing.T, c *Client) *Frame {
	t.Helper()
	select {
	case raw := <-c.Send:
		f, err := ParseFrame(raw)
		require.NoError(t, err)
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func requireNoPayload(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected payload: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGroupKeysNeverCollide(t *testing.T) {
	// Same raw id, different namespaces.
	require.NotEqual(t, ChatGroup("abc"), UserGroup("abc"))
	require.Equal(t, ChatGroup("abc"), ChatGroup("abc"))
}

func TestRouterJoinIdempotent(t *testing.T) {
	fan := NewFanout(1, 16)
	defer fan.Close()
	router := NewRouter(fan)
	c := newTestClient("c1")

	router.Join(c, ChatGroup("room"))
	router.Join(c, ChatGroup("room"))
	require.Len(t, router.Members(ChatGroup("room"), nil), 1)
}

func TestRouterBroadcastExcludesSender(t *testing.T) {
	fan := NewFanout(2, 16)
	defer fan.Close()
	router := NewRouter(fan)

	sender := newTestClient("c1")
	peer := newTestClient("c2")
	router.Join(sender, ChatGroup("room"))
	router.Join(peer, ChatGroup("room"))

	router.BroadcastToChat("room", sender, BuildMessageFrame(MessagePayload{ID: "m1", ChatID: "room"}))

	f := recvPayload(t, peer)
	require.Equal(t, EvtMessage, f.Event)
	requireNoPayload(t, sender)
}

func TestRouterPushToUserReachesEveryConnection(t *testing.T) {
	fan := NewFanout(2, 16)
	defer fan.Close()
	router := NewRouter(fan)

	phone := newTestClient("c1")
	laptop := newTestClient("c2")
	router.Join(phone, UserGroup("alice"))
	router.Join(laptop, UserGroup("alice"))

	router.PushToUser("alice", BuildNotificationFrame(NotificationPayload{ID: "n1"}))

	require.Equal(t, EvtNotification, recvPayload(t, phone).Event)
	require.Equal(t, EvtNotification, recvPayload(t, laptop).Event)
}

func TestRouterLeaveAllDropsEveryGroup(t *testing.T) {
	fan := NewFanout(1, 16)
	defer fan.Close()
	router := NewRouter(fan)
	c := newTestClient("c1")

	router.Join(c, ChatGroup("room-a"))
	router.Join(c, ChatGroup("room-b"))
	router.Join(c, UserGroup("alice"))

	router.LeaveAll(c)
	require.Empty(t, router.Members(ChatGroup("room-a"), nil))
	require.Empty(t, router.Members(ChatGroup("room-b"), nil))
	require.Empty(t, router.Members(UserGroup("alice"), nil))
}

func TestRouterLeaveSingleGroup(t *testing.T) {
	fan := NewFanout(1, 16)
	defer fan.Close()
	router := NewRouter(fan)
	c := newTestClient("c1")

	router.Join(c, ChatGroup("room-a"))
	router.Join(c, UserGroup("alice"))

	router.Leave(c, ChatGroup("room-a"))
	require.Empty(t, router.Members(ChatGroup("room-a"), nil))
	require.Len(t, router.Members(UserGroup("alice"), nil), 1)
}
