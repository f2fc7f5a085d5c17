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

// Notification types. Only "message" is produced here; the other values
// exist for the REST surface and future producers.
const (
	NotifTypeMessage = "message"
	NotifTypeMention = "mention"
	NotifTypeInvite  = "invite"
)

// NotificationData carries source context for rendering the notification.
type NotificationData struct {
	ChatID  string `bson:"chat_id" json:"chatId"`
	Preview string `bson:"preview" json:"preview"`
}

// Notification is created in batches by the fan-out and mutated only by
// read-state transitions.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"userId"`
	Actor     primitive.ObjectID `bson:"actor,omitempty" json:"actorId,omitempty"`
	Type      string             `bson:"type" json:"type"`
	Data      NotificationData   `bson:"data" json:"data"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

func (n *Notification) GetTableName() string { return NotificationTable }

func (n *Notification) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(n.GetTableName())
}

func (n *Notification) HexID() string { return n.ID.Hex() }

type INotificationStore interface {
	// InsertBatch persists the records and returns the subset that made it
	// to disk; with an unordered bulk write a partial batch is possible.
	InsertBatch(ctx context.Context, notifs []*Notification) ([]*Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notifID string) error
	MarkChatRead(ctx context.Context, userID, chatID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type NotificationStore struct{}

func NewNotificationStore() *NotificationStore { return &NotificationStore{} }

func (s *NotificationStore) InsertBatch(ctx context.Context, notifs []*Notification) ([]*Notification, error) {
	if len(notifs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(notifs))
	for _, n := range notifs {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		docs = append(docs, n)
	}

	_, err := (&Notification{}).Collection().
		InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return notifs, nil
	}

	// Unordered writes keep going past individual failures; report back
	// exactly the records that were persisted.
	var bwe mongo.BulkWriteException
	if !errorsAsBulkWrite(err, &bwe) {
		return nil, err
	}
	failed := make(map[int]struct{}, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		failed[we.Index] = struct{}{}
	}
	persisted := make([]*Notification, 0, len(notifs))
	for i, n := range notifs {
		if _, ok := failed[i]; !ok {
			persisted = append(persisted, n)
		}
	}
	return persisted, err
}

func errorsAsBulkWrite(err error, out *mongo.BulkWriteException) bool {
	bwe, ok := err.(mongo.BulkWriteException)
	if ok {
		*out = bwe
	}
	return ok
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := (&Notification{}).Collection().Find(ctx, bson.M{"user": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flips one record; the filter scopes it to the caller so a user
// can never touch another user's records.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, notifID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	nid, err := primitive.ObjectIDFromHex(notifID)
	if err != nil {
		return err
	}
	_, err = (&Notification{}).Collection().UpdateOne(ctx,
		bson.M{"_id": nid, "user": uid},
		bson.M{"$set": bson.M{"read": true}})
	return err
}

func (s *NotificationStore) MarkChatRead(ctx context.Context, userID, chatID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	_, err = (&Notification{}).Collection().UpdateMany(ctx,
		bson.M{"user": uid, "data.chat_id": chatID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	return err
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	_, err = (&Notification{}).Collection().UpdateMany(ctx,
		bson.M{"user": uid, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	return err
}
