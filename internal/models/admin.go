// internal/models/admin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin is a back-office account. Password holds the bcrypt hash and is never
// serialized to JSON.
type Admin struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty" json:"_id"`
	Login      string                 `bson:"login" json:"login"`
	Name       string                 `bson:"name,omitempty" json:"name,omitempty"`
	Password   string                 `bson:"password" json:"-"`
	Avatar     string                 `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Claims     map[string]interface{} `bson:"claims,omitempty" json:"claims"`
	LastActive *time.Time             `bson:"lastActive,omitempty" json:"lastActive,omitempty"`
	CreatedAt  time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time              `bson:"updatedAt" json:"updatedAt"`
}
