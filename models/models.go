package models

import "time"

// Product is a catalog entry redeemable for coins.
type Product struct {
	ProductID   string    `json:"productid" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Price       float64   `json:"price" bson:"price"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	ThumbURL    string    `json:"thumb_url,omitempty" bson:"thumb_url,omitempty"`
	QRCode      string    `json:"qr_code" bson:"qr_code"`
	Inventory   int       `json:"inventory" bson:"inventory"`
	CoinCost    int64     `json:"coin_cost" bson:"coin_cost"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// User mirrors the identity-provider record plus the coin balance.
// The balance is the only field checkout mutates.
type User struct {
	UserID          string    `json:"userid" bson:"userid"`
	Name            string    `json:"name" bson:"name"`
	Email           string    `json:"email" bson:"email"`
	Company         string    `json:"company,omitempty" bson:"company,omitempty"`
	Coins           int64     `json:"coins" bson:"coins"`
	IsAdmin         bool      `json:"is_admin" bson:"is_admin"`
	ProfileImageURL string    `json:"profile_image_url,omitempty" bson:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// CartItem is the single pending selection a user holds before checkout.
// Product name and coin cost are denormalized for display and for the
// receipt snapshot.
type CartItem struct {
	ItemID      string    `json:"itemId" bson:"itemId"`
	UserID      string    `json:"userId" bson:"userId"`
	ProductID   string    `json:"productId" bson:"productId"`
	ProductName string    `json:"productName" bson:"productName"`
	CoinCost    int64     `json:"coinCost" bson:"coinCost"`
	AddedAt     time.Time `json:"addedAt" bson:"addedAt"`
}

// ReceiptItem is a frozen copy of a product at time of purchase.
type ReceiptItem struct {
	ProductID   string `json:"product_id" bson:"product_id"`
	ProductName string `json:"product_name" bson:"product_name"`
	CoinCost    int64  `json:"coin_value" bson:"coin_value"`
}

// Receipt is immutable once created.
type Receipt struct {
	ReceiptID   string        `json:"receiptid" bson:"receiptid"`
	UserID      string        `json:"userid" bson:"userid"`
	OrderNumber string        `json:"order_number" bson:"order_number"`
	TotalCoins  int64         `json:"total_coins" bson:"total_coins"`
	Items       []ReceiptItem `json:"items" bson:"items"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
}

// IdempotencyRecord stores one replayed mutating request keyed by the
// client-supplied Idempotency-Key header.
type IdempotencyRecord struct {
	Key         string                 `bson:"key"`
	Method      string                 `bson:"method"`
	Path        string                 `bson:"path"`
	UserID      string                 `bson:"user_id"`
	RequestHash string                 `bson:"request_hash"`
	Response    map[string]interface{} `bson:"response,omitempty"`
	CreatedAt   time.Time              `bson:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at"`
}
