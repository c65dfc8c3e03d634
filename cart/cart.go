package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"perku/catalog"
	"perku/coins"
	"perku/models"
	"perku/utils"
)

var ErrAlreadyHasItem = errors.New("cart already has an item")

// Catalog is the slice of the product catalogue the cart needs.
type Catalog interface {
	FindByID(ctx context.Context, productID string) (*models.Product, error)
	ReserveUnit(ctx context.Context, productID string) error
	RestockUnit(ctx context.Context, productID string) error
}

// Ledger reads coin balances.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int64, error)
}

// Store persists cart items.
type Store interface {
	ItemsForUser(ctx context.Context, userID string) ([]models.CartItem, error)
	Get(ctx context.Context, itemID string) (*models.CartItem, error)
	Insert(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, itemID string) (bool, error)
	DeleteForUser(ctx context.Context, userID string) error
}

// Manager enforces the single-item cart policy.
type Manager struct {
	store   Store
	catalog Catalog
	ledger  Ledger

	// RestockOnRemove controls whether removing a cart item returns the
	// reserved unit to stock. Off by default: scanning a product is
	// treated as a reservation and removal forfeits it.
	RestockOnRemove bool
}

func NewManager(store Store, cat Catalog, ledger Ledger, restockOnRemove bool) *Manager {
	return &Manager{store: store, catalog: cat, ledger: ledger, RestockOnRemove: restockOnRemove}
}

// Add places a product in the user's cart and reserves one unit.
// Preconditions, in order: the cart must be empty, the product must
// exist with stock remaining, and the balance must cover the coin
// cost. The balance itself is only debited at checkout.
func (m *Manager) Add(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	existing, err := m.store.ItemsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyHasItem
	}

	product, err := m.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Inventory <= 0 {
		return nil, catalog.ErrOutOfStock
	}

	balance, err := m.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < product.CoinCost {
		return nil, coins.ErrInsufficientCoins
	}

	item := &models.CartItem{
		ItemID:      utils.GetUUID(),
		UserID:      userID,
		ProductID:   product.ProductID,
		ProductName: product.Name,
		CoinCost:    product.CoinCost,
		AddedAt:     time.Now(),
	}
	if err := m.store.Insert(ctx, item); err != nil {
		return nil, err
	}

	// The item is already in the cart at this point, so a failed
	// reservation is logged rather than surfaced.
	if err := m.catalog.ReserveUnit(ctx, product.ProductID); err != nil {
		log.Println("cart: reserve after add failed for product", product.ProductID, ":", err)
	}

	return item, nil
}

// Remove deletes one of the user's cart items. Removing an id that no
// longer exists, or that belongs to someone else, is a no-op returning
// false.
func (m *Manager) Remove(ctx context.Context, userID, itemID string) (bool, error) {
	item, err := m.store.Get(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil || item.UserID != userID {
		return false, nil
	}

	deleted, err := m.store.Delete(ctx, itemID)
	if err != nil || !deleted {
		return false, err
	}

	if m.RestockOnRemove {
		if err := m.catalog.RestockUnit(ctx, item.ProductID); err != nil {
			log.Println("cart: restock after remove failed for product", item.ProductID, ":", err)
		}
	}

	return true, nil
}

// ItemsForUser returns the user's cart with product snapshots.
func (m *Manager) ItemsForUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	return m.store.ItemsForUser(ctx, userID)
}

// ClearForUser empties the user's cart.
func (m *Manager) ClearForUser(ctx context.Context, userID string) error {
	return m.store.DeleteForUser(ctx, userID)
}

// Total sums the snapshot coin costs of the given items.
func Total(items []models.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.CoinCost
	}
	return total
}
