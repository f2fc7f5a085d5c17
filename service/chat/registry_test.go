package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(connID string) *Client {
	return NewClient(connID, nil, 16)
}

func TestRegistryRegisterAndIdentity(t *testing.T) {
	reg := NewRegistry("gw-test")
	c := newTestClient("c1")

	require.Empty(t, reg.IdentityOf(c))
	require.False(t, reg.IsOnline("alice"))

	prev := reg.Register(c, "alice")
	require.Empty(t, prev)
	require.Equal(t, "alice", reg.IdentityOf(c))
	require.True(t, reg.IsOnline("alice"))
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	reg := NewRegistry("gw-test")
	c := newTestClient("c1")

	reg.Register(c, "alice")
	prev := reg.Register(c, "alice")
	require.Equal(t, "alice", prev)
	require.Len(t, reg.ConnsOf("alice"), 1)
}

func TestRegistryRebindLastWriteWins(t *testing.T) {
	reg := NewRegistry("gw-test")
	c := newTestClient("c1")

	reg.Register(c, "alice")
	prev := reg.Register(c, "bob")
	require.Equal(t, "alice", prev)

	require.Equal(t, "bob", reg.IdentityOf(c))
	require.False(t, reg.IsOnline("alice"))
	require.True(t, reg.IsOnline("bob"))
}

func TestRegistryMultipleConnectionsPerUser(t *testing.T) {
	reg := NewRegistry("gw-test")
	phone := newTestClient("c1")
	laptop := newTestClient("c2")

	reg.Register(phone, "alice")
	reg.Register(laptop, "alice")
	require.Len(t, reg.ConnsOf("alice"), 2)

	uid, stillOnline := reg.Unregister(phone)
	require.Equal(t, "alice", uid)
	require.True(t, stillOnline)
	require.True(t, reg.IsOnline("alice"))

	uid, stillOnline = reg.Unregister(laptop)
	require.Equal(t, "alice", uid)
	require.False(t, stillOnline)
	require.False(t, reg.IsOnline("alice"))
	require.Nil(t, reg.ConnsOf("alice"))
}

func TestRegistryUnregisterUnknownConnIsNoop(t *testing.T) {
	reg := NewRegistry("gw-test")
	c := newTestClient("never-registered")

	uid, stillOnline := reg.Unregister(c)
	require.Empty(t, uid)
	require.False(t, stillOnline)
}
