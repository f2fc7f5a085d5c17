package model

import "go.mongodb.org/mongo-driver/mongo"

// Collection names.
const (
	UserTable         = "user"
	ChatTable         = "chat"
	MessageTable      = "message"
	NotificationTable = "notification"
)

type Table interface {
	GetTableName() string
	Collection() *mongo.Collection
}
