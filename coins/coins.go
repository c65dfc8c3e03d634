package coins

import (
	"context"
	"errors"
	"log"

	"perku/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("user not found")
var ErrInsufficientCoins = errors.New("insufficient coins")

// Balance returns a user's current coin balance.
func Balance(ctx context.Context, userID string) (int64, error) {
	var user struct {
		Coins int64 `bson:"coins"`
	}
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return user.Coins, nil
}

// SetBalance writes an absolute balance. Returns false without writing
// when the value is negative; the non-negative invariant holds as long
// as every write goes through this ledger. Not exposed over HTTP; it
// exists for balance imports and back-office scripts.
func SetBalance(ctx context.Context, userID string, value int64) bool {
	if value < 0 {
		log.Println("SetBalance rejected negative value for user", userID)
		return false
	}

	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{"coins": value}},
	)
	if err != nil {
		log.Println("SetBalance update error:", err)
		return false
	}
	return res.MatchedCount > 0
}

// Debit subtracts amount from the balance in a single conditional
// update. The coins >= amount filter makes concurrent debits safe: the
// balance can never go negative, even under racing checkouts.
func Debit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return errors.New("negative debit amount")
	}

	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": userID, "coins": bson.M{"$gte": amount}},
		bson.M{"$inc": bson.M{"coins": -amount}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing user from a shortfall.
		if _, err := Balance(ctx, userID); err != nil {
			return err
		}
		return ErrInsufficientCoins
	}
	return nil
}

// Credit adds amount back to the balance. Used to compensate a debit
// when the receipt write fails.
func Credit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return errors.New("negative credit amount")
	}

	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$inc": bson.M{"coins": amount}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
