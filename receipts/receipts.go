package receipts

import (
	"context"
	"errors"
	"time"

	"perku/db"
	"perku/models"
	"perku/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("receipt not found")

// Create persists an immutable receipt for a completed checkout.
func Create(ctx context.Context, userID, orderNumber string, totalCoins int64, items []models.ReceiptItem) (*models.Receipt, error) {
	receipt := &models.Receipt{
		ReceiptID:   utils.GetUUID(),
		UserID:      userID,
		OrderNumber: orderNumber,
		TotalCoins:  totalCoins,
		Items:       items,
		CreatedAt:   time.Now(),
	}

	if _, err := db.ReceiptCollection.InsertOne(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetByID looks a receipt up by its identifier.
func GetByID(ctx context.Context, receiptID string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := db.ReceiptCollection.FindOne(ctx, bson.M{"receiptid": receiptID}).Decode(&receipt)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListForUser returns the user's receipts, newest first.
func ListForUser(ctx context.Context, userID string) ([]models.Receipt, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := db.ReceiptCollection.Find(ctx, bson.M{"userid": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list []models.Receipt
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Receipt{}
	}
	return list, nil
}

// Count returns the number of receipts ever issued, for admin reporting.
func Count(ctx context.Context) (int64, error) {
	return db.ReceiptCollection.CountDocuments(ctx, bson.M{})
}
