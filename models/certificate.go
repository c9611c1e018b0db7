package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Certificate struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	Category     string             `bson:"category" json:"category"`
	UniqueID     string             `bson:"uniqueId" json:"uniqueId"`
	FileLocation string             `bson:"fileLocation" json:"-"`
	IssuedAt     time.Time          `bson:"issuedAt" json:"issuedAt"`
	// Owner display name, resolved from the users collection on reads only.
	OwnerName string `bson:"ownerName,omitempty" json:"ownerName,omitempty"`
}
