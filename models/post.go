package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Slug      string             `bson:"slug" json:"slug"`
	Content   string             `bson:"content" json:"content"`
	Subtitles []Subtitle         `bson:"subtitles" json:"subtitles"`
	Category  string             `bson:"category" json:"category"`
	// Author display name snapshotted at creation time, not a reference.
	Author    string `bson:"author" json:"author"`
	CreatedAt int64  `bson:"createdAt" json:"createdAt"`
}

// Subtitle is one section heading of a post with its bullet points.
type Subtitle struct {
	Title   string   `bson:"title" json:"title"`
	Bullets []Bullet `bson:"bullets" json:"bullets"`
}

// Bullet is a single point under a subtitle. Image, video and code
// are optional enrichments of the text.
type Bullet struct {
	Text  string `bson:"text" json:"text"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`
	Video string `bson:"video,omitempty" json:"video,omitempty"`
	Code  string `bson:"code,omitempty" json:"code,omitempty"`
}
