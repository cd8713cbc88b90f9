// internal/storage/mongodb/registration_repo.go
package mongodb

import (
	"context"
	"errors"
	"time"

	"delivery-fleet-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type registrationRepo struct {
	coll *mongo.Collection
}

func (r *registrationRepo) latest(ctx context.Context, platform string, chatID int64) (*models.Registration, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var reg models.Registration
	err := r.coll.FindOne(ctx, bson.M{"platform": platform, "chatId": chatID}, opts).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepo) create(ctx context.Context, platform string, chatID int64, username string) (*models.Registration, error) {
	now := time.Now()
	reg := &models.Registration{
		ID:        primitive.NewObjectID(),
		Platform:  platform,
		ChatID:    chatID,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepo) Latest(ctx context.Context, platform string, chatID int64, username string) (*models.Registration, error) {
	reg, err := r.latest(ctx, platform, chatID)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		return reg, nil
	}
	return r.create(ctx, platform, chatID, username)
}

func (r *registrationRepo) Save(ctx context.Context, reg *models.Registration) error {
	reg.UpdatedAt = time.Now()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": reg.ID}, reg)
	return err
}

func (r *registrationRepo) Restart(ctx context.Context, platform string, chatID int64, username string) (*models.Registration, error) {
	reg, err := r.latest(ctx, platform, chatID)
	if err != nil {
		return nil, err
	}
	if reg == nil || reg.Completed {
		return r.create(ctx, platform, chatID, username)
	}
	*reg = models.Registration{
		ID:        reg.ID,
		Platform:  platform,
		ChatID:    chatID,
		Username:  username,
		CreatedAt: reg.CreatedAt,
	}
	if err := r.Save(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}
