package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"learnly/models"
)

type MongoCertificateStore struct {
	certs *mongo.Collection
	users *mongo.Collection
}

func NewMongoCertificateStore(certs, users *mongo.Collection) *MongoCertificateStore {
	return &MongoCertificateStore{certs: certs, users: users}
}

func (s *MongoCertificateStore) Insert(ctx context.Context, cert *models.Certificate) error {
	if cert.ID.IsZero() {
		cert.ID = primitive.NewObjectID()
	}
	_, err := s.certs.InsertOne(ctx, cert)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoCertificateStore) FindByUserAndCategory(ctx context.Context, userID primitive.ObjectID, category string) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.certs.FindOne(ctx, bson.M{"userId": userID, "category": category}).Decode(&cert)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (s *MongoCertificateStore) FindByUniqueID(ctx context.Context, uniqueID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.certs.FindOne(ctx, bson.M{"uniqueId": uniqueID}).Decode(&cert)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var owner models.User
	err = s.users.FindOne(ctx, bson.M{"_id": cert.UserID}).Decode(&owner)
	if err == nil {
		cert.OwnerName = owner.Name
	} else if err != mongo.ErrNoDocuments {
		return nil, err
	}
	return &cert, nil
}

func (s *MongoCertificateStore) Search(ctx context.Context, filter CertificateFilter) ([]models.Certificate, error) {
	match, err := buildMatch(filter)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.users.Name()},
			{Key: "localField", Value: "userId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "ownerName", Value: "$owner.name"},
		}}},
	}
	if filter.OwnerName != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: ownerNameMatch(filter.OwnerName)}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$unset", Value: "owner"}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "issuedAt", Value: -1}}}},
	)

	cursor, err := s.certs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var certs []models.Certificate
	if err := cursor.All(ctx, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}
