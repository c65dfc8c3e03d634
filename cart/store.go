package cart

import (
	"context"
	"os"

	"perku/catalog"
	"perku/coins"
	"perku/db"
	"perku/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoStore persists cart items in the cartitems collection.
type mongoStore struct{}

func (mongoStore) ItemsForUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	cursor, err := db.CartCollection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

func (mongoStore) Get(ctx context.Context, itemID string) (*models.CartItem, error) {
	var item models.CartItem
	err := db.CartCollection.FindOne(ctx, bson.M{"itemId": itemID}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (mongoStore) Insert(ctx context.Context, item *models.CartItem) error {
	_, err := db.CartCollection.InsertOne(ctx, item)
	return err
}

func (mongoStore) Delete(ctx context.Context, itemID string) (bool, error) {
	res, err := db.CartCollection.DeleteOne(ctx, bson.M{"itemId": itemID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (mongoStore) DeleteForUser(ctx context.Context, userID string) error {
	_, err := db.CartCollection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// catalogSource adapts the catalog package to the Catalog interface.
type catalogSource struct{}

func (catalogSource) FindByID(ctx context.Context, productID string) (*models.Product, error) {
	return catalog.FindByID(ctx, productID)
}

func (catalogSource) ReserveUnit(ctx context.Context, productID string) error {
	return catalog.ReserveUnit(ctx, productID)
}

func (catalogSource) RestockUnit(ctx context.Context, productID string) error {
	return catalog.RestockUnit(ctx, productID)
}

// ledgerSource adapts the coins package to the Ledger interface.
type ledgerSource struct{}

func (ledgerSource) Balance(ctx context.Context, userID string) (int64, error) {
	return coins.Balance(ctx, userID)
}

// DefaultManager wires the Mongo-backed manager used by the handlers.
func DefaultManager() *Manager {
	restock := os.Getenv("RESTOCK_ON_REMOVE") == "true"
	return NewManager(mongoStore{}, catalogSource{}, ledgerSource{}, restock)
}
