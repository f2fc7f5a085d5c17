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

// User is owned by the auth collaborator; this core only reads display
// metadata and bumps last_seen when the last connection goes away.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	College      string             `bson:"college" json:"college"`
	AvatarURL    string             `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	LastSeen     time.Time          `bson:"last_seen" json:"lastSeen"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (u *User) GetTableName() string { return UserTable }

func (u *User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}

func (u *User) HexID() string { return u.ID.Hex() }

// IUserStore is the slice of user data the live core needs.
type IUserStore interface {
	FindDisplay(ctx context.Context, userID string) (*User, error)
	FindDisplayMany(ctx context.Context, userIDs []string) (map[string]*User, error)
	TouchLastSeen(ctx context.Context, userID string) error
}

type UserStore struct{}

func NewUserStore() *UserStore { return &UserStore{} }

var userDisplayProjection = bson.M{"name": 1, "avatar_url": 1}

func (s *UserStore) FindDisplay(ctx context.Context, userID string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	var u User
	err = (&User{}).Collection().
		FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(userDisplayProjection)).
		Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindDisplayMany(ctx context.Context, userIDs []string) (map[string]*User, error) {
	oids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	cur, err := (&User{}).Collection().
		Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetProjection(userDisplayProjection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]*User, len(oids))
	for cur.Next(ctx) {
		var u User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.HexID()] = &u
	}
	return out, cur.Err()
}

func (s *UserStore) TouchLastSeen(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	_, err = (&User{}).Collection().UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"last_seen": time.Now().UTC()}})
	return err
}
