package users

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"perku/db"
	"perku/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("user not found")

const defaultStartCoins = 150

// StartCoins returns the coin grant given to newly provisioned users.
func StartCoins() int64 {
	if v := os.Getenv("START_COINS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return defaultStartCoins
}

// Get fetches a user by the identity-provider id.
func Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Provision creates the local record for an identity-provider user
// with the starting coin grant. Re-provisioning an existing user only
// refreshes the mutable profile fields, never the balance.
func Provision(ctx context.Context, userID, name, email, company string) (*models.User, error) {
	existing, err := Get(ctx, userID)
	if err == nil {
		update := bson.M{}
		if name != "" {
			update["name"] = name
		}
		if email != "" {
			update["email"] = email
		}
		if company != "" {
			update["company"] = company
		}
		if len(update) == 0 {
			return existing, nil
		}
		if _, err := db.UserCollection.UpdateOne(ctx,
			bson.M{"userid": userID}, bson.M{"$set": update}); err != nil {
			return nil, err
		}
		return Get(ctx, userID)
	}
	if err != ErrNotFound {
		return nil, err
	}

	user := &models.User{
		UserID:    userID,
		Name:      name,
		Email:     email,
		Company:   company,
		Coins:     StartCoins(),
		IsAdmin:   false,
		CreatedAt: time.Now(),
	}
	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users, newest first.
func List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := db.UserCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list []models.User
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.User{}
	}
	return list, nil
}

// Count returns the number of registered users, for admin reporting.
func Count(ctx context.Context) (int64, error) {
	return db.UserCollection.CountDocuments(ctx, bson.M{})
}
