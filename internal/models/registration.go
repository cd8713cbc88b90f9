// internal/models/registration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registration is the progress of one passenger through the bot's question flow.
type Registration struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Platform    string             `bson:"platform" json:"platform"`
	ChatID      int64              `bson:"chatId" json:"chatId"`
	Username    string             `bson:"username,omitempty" json:"username,omitempty"`
	Lang        string             `bson:"lang,omitempty" json:"lang,omitempty"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Name        string             `bson:"name,omitempty" json:"name,omitempty"`
	PassType    string             `bson:"passType,omitempty" json:"passType,omitempty"`
	Files       []string           `bson:"files,omitempty" json:"files,omitempty"`
	Step        int                `bson:"step" json:"step"`
	Completed   bool               `bson:"completed" json:"completed"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
