package model

import (
	"context"
	"sort"
	"time"

	"CBProject/service/mgo"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ChatTypePrivate = "private"

// Chat is a two-member conversation, created lazily on first contact and
// never deleted. latest_message is a best-effort pointer; history ordering
// comes from the message log, not from here.
type Chat struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Type          string               `bson:"type" json:"type"`
	Members       []primitive.ObjectID `bson:"members" json:"members"`
	LatestMessage primitive.ObjectID   `bson:"latest_message,omitempty" json:"latestMessage,omitempty"`
	CreatedAt     time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updatedAt"`
}

func (c *Chat) GetTableName() string { return ChatTable }

func (c *Chat) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}

func (c *Chat) HexID() string { return c.ID.Hex() }

// MemberIDs returns member ids as hex strings.
func (c *Chat) MemberIDs() []string {
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		out = append(out, m.Hex())
	}
	return out
}

type IChatStore interface {
	FindOrCreatePrivate(ctx context.Context, userA, userB string) (*Chat, error)
	FindByID(ctx context.Context, chatID string) (*Chat, error)
	UpdateLatestMessage(ctx context.Context, chatID, messageID string) error
}

type ChatStore struct{}

func NewChatStore() *ChatStore { return &ChatStore{} }

// FindOrCreatePrivate returns the private chat between the two users,
// creating it atomically on first contact. Member order does not matter and
// repeated calls return the same chat.
func (s *ChatStore) FindOrCreatePrivate(ctx context.Context, userA, userB string) (*Chat, error) {
	if userA == userB {
		return nil, errors.New("a private chat needs two distinct members")
	}
	a, err := primitive.ObjectIDFromHex(userA)
	if err != nil {
		return nil, err
	}
	b, err := primitive.ObjectIDFromHex(userB)
	if err != nil {
		return nil, err
	}

	members := []primitive.ObjectID{a, b}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Hex() < members[j].Hex()
	})

	now := time.Now().UTC()
	filter := bson.M{
		"type":    ChatTypePrivate,
		"members": bson.M{"$all": bson.A{a, b}, "$size": 2},
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"type":       ChatTypePrivate,
			"members":    members,
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var chat Chat
	if err := (&Chat{}).Collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatStore) FindByID(ctx context.Context, chatID string) (*Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, err
	}
	var chat Chat
	if err := (&Chat{}).Collection().FindOne(ctx, bson.M{"_id": oid}).Decode(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatStore) UpdateLatestMessage(ctx context.Context, chatID, messageID string) error {
	cid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return err
	}
	mid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return err
	}
	_, err = (&Chat{}).Collection().UpdateOne(ctx,
		bson.M{"_id": cid},
		bson.M{"$set": bson.M{"latest_message": mid, "updated_at": time.Now().UTC()}})
	return err
}
