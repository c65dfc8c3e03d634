package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"perku/db"
	"perku/models"
	"perku/rdx"
	"perku/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("product not found")
var ErrOutOfStock = errors.New("product out of stock")

const listCacheKey = "product_catalogue"

// FindByID looks a product up by its identifier.
func FindByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := db.ProductCollection.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByCode resolves a scanned QR code string to a product.
func FindByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := db.ProductCollection.FindOne(ctx, bson.M{"qr_code": code}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns the full catalogue, served from Redis when warm.
func List(ctx context.Context) ([]models.Product, error) {
	if val, err := rdx.RdxGet(listCacheKey); err == nil && val != "" {
		var products []models.Product
		if err := json.Unmarshal([]byte(val), &products); err == nil {
			return products, nil
		}
	}

	cursor, err := db.ProductCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}

	if jsonBytes, err := json.Marshal(products); err == nil {
		_ = rdx.RdxSet(listCacheKey, string(jsonBytes), 2*time.Hour)
	}

	return products, nil
}

// ReserveUnit decrements inventory by one, only while stock remains.
// The conditional filter makes concurrent adds safe against overselling.
func ReserveUnit(ctx context.Context, productID string) error {
	res, err := db.ProductCollection.UpdateOne(ctx,
		bson.M{"productid": productID, "inventory": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"inventory": -1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrOutOfStock
	}
	invalidateListCache()
	return nil
}

// RestockUnit returns one reserved unit to stock. Only called when the
// restock-on-remove policy is enabled.
func RestockUnit(ctx context.Context, productID string) error {
	res, err := db.ProductCollection.UpdateOne(ctx,
		bson.M{"productid": productID},
		bson.M{"$inc": bson.M{"inventory": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	invalidateListCache()
	return nil
}

// Create inserts a new product, assigning its id and QR code.
func Create(ctx context.Context, product *models.Product) error {
	product.ProductID = "p" + utils.GenerateID(12)
	product.QRCode = utils.GenerateID(14)
	product.CreatedAt = time.Now()

	if _, err := db.ProductCollection.InsertOne(ctx, product); err != nil {
		return err
	}
	invalidateListCache()
	return nil
}

// Update applies a partial update to a product. The QR code and
// creation timestamp are never touched.
func Update(ctx context.Context, productID string, fields bson.M) error {
	delete(fields, "productid")
	delete(fields, "qr_code")
	delete(fields, "created_at")

	res, err := db.ProductCollection.UpdateOne(ctx,
		bson.M{"productid": productID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	invalidateListCache()
	return nil
}

// Delete removes a product from the catalogue.
func Delete(ctx context.Context, productID string) error {
	res, err := db.ProductCollection.DeleteOne(ctx, bson.M{"productid": productID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	invalidateListCache()
	return nil
}

// Count returns the number of catalogue entries, for admin reporting.
func Count(ctx context.Context) (int64, error) {
	return db.ProductCollection.CountDocuments(ctx, bson.M{})
}

func invalidateListCache() {
	if err := rdx.RdxDel(listCacheKey); err != nil {
		log.Println("catalog cache invalidation error:", err)
	}
}
