package chat

import (
	"context"
	"sync"
	"time"

	"CBProject/module/chat/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory store doubles for the pipeline and fan-out tests. They mimic
// the mongo-backed stores closely enough to exercise the delivery paths
// without a live database.

type fakeUserStore struct {
	mu         sync.Mutex
	users      map[string]*model.User
	displayErr error
	touched    []string
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]*model.User)}
	for _, u := range users {
		f.users[u.HexID()] = u
	}
	return f
}

func (f *fakeUserStore) FindDisplay(_ context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayErr != nil {
		return nil, f.displayErr
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeUserStore) FindDisplayMany(_ context.Context, userIDs []string) (map[string]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayErr != nil {
		return nil, f.displayErr
	}
	out := make(map[string]*model.User)
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeUserStore) TouchLastSeen(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, userID)
	return nil
}

type fakeChatStore struct {
	mu            sync.Mutex
	chats         map[string]*model.Chat
	latestUpdates map[string]string // chat id -> message id
	latestErr     error
}

func newFakeChatStore(chats ...*model.Chat) *fakeChatStore {
	f := &fakeChatStore{
		chats:         make(map[string]*model.Chat),
		latestUpdates: make(map[string]string),
	}
	for _, c := range chats {
		f.chats[c.HexID()] = c
	}
	return f
}

func (f *fakeChatStore) FindOrCreatePrivate(_ context.Context, userA, userB string) (*model.Chat, error) {
	return nil, errors.New("not supported by fake")
}

func (f *fakeChatStore) FindByID(_ context.Context, chatID string) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return c, nil
}

func (f *fakeChatStore) UpdateLatestMessage(_ context.Context, chatID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return f.latestErr
	}
	f.latestUpdates[chatID] = messageID
	return nil
}

type fakeMessageStore struct {
	mu        sync.Mutex
	inserted  []*model.Message
	insertErr error
}

func (f *fakeMessageStore) Insert(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now().UTC()
	f.inserted = append(f.inserted, msg)
	return nil
}

func (f *fakeMessageStore) ListByChat(_ context.Context, chatID string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, 0, len(f.inserted))
	for _, m := range f.inserted {
		if m.Chat.Hex() == chatID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeNotificationStore struct {
	mu        sync.Mutex
	persisted []*model.Notification
	batchErr  error
	// dropUsers simulates a partial bulk write: records for these user ids
	// fail to persist while the rest of the batch lands.
	dropUsers map[string]struct{}
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{dropUsers: make(map[string]struct{})}
}

func (f *fakeNotificationStore) InsertBatch(_ context.Context, notifs []*model.Notification) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil && len(f.dropUsers) == 0 {
		return nil, f.batchErr
	}
	kept := make([]*model.Notification, 0, len(notifs))
	for _, n := range notifs {
		if _, dropped := f.dropUsers[n.User.Hex()]; dropped {
			continue
		}
		n.ID = primitive.NewObjectID()
		n.CreatedAt = time.Now().UTC()
		kept = append(kept, n)
	}
	f.persisted = append(f.persisted, kept...)
	return kept, f.batchErr
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, 0)
	for _, n := range f.persisted {
		if n.User.Hex() == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, userID, notifID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.persisted {
		if n.HexID() == notifID && n.User.Hex() == userID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) MarkChatRead(_ context.Context, userID, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.persisted {
		if n.User.Hex() == userID && n.Data.ChatID == chatID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.persisted {
		if n.User.Hex() == userID {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) countPersisted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persisted)
}
