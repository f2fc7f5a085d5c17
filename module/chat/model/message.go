package model

import (
	"context"
	"time"

	"CBProject/service/mgo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Message payload kinds. Exactly one of Text/ImageURL carries the payload.
const (
	MsgKindText  = "text"
	MsgKindImage = "image"
)

// Message is append-only; the core never mutates or deletes persisted
// messages.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Chat      primitive.ObjectID `bson:"chat" json:"chatId"`
	Sender    primitive.ObjectID `bson:"sender" json:"senderId"`
	Kind      string             `bson:"kind" json:"kind"`
	Text      string             `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL  string             `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

func (m *Message) GetTableName() string { return MessageTable }

func (m *Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

func (m *Message) HexID() string { return m.ID.Hex() }

type IMessageStore interface {
	Insert(ctx context.Context, msg *Message) error
	ListByChat(ctx context.Context, chatID string, limit int) ([]Message, error)
}

type MessageStore struct{}

func NewMessageStore() *MessageStore { return &MessageStore{} }

// Insert persists the message, assigning its id and creation timestamp.
func (s *MessageStore) Insert(ctx context.Context, msg *Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := msg.Collection().InsertOne(ctx, msg)
	return err
}

// ListByChat returns up to limit messages for the chat in ascending
// creation order; _id breaks same-millisecond ties.
func (s *MessageStore) ListByChat(ctx context.Context, chatID string, limit int) ([]Message, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := (&Message{}).Collection().Find(ctx, bson.M{"chat": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
