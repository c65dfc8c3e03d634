package cart

import (
	"context"
	"errors"
	"testing"

	"perku/catalog"
	"perku/coins"
	"perku/models"
)

type fakeStore struct {
	items map[string]*models.CartItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]*models.CartItem)}
}

func (s *fakeStore) ItemsForUser(_ context.Context, userID string) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range s.items {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, itemID string) (*models.CartItem, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (s *fakeStore) Insert(_ context.Context, item *models.CartItem) error {
	s.items[item.ItemID] = item
	return nil
}

func (s *fakeStore) Delete(_ context.Context, itemID string) (bool, error) {
	if _, ok := s.items[itemID]; !ok {
		return false, nil
	}
	delete(s.items, itemID)
	return true, nil
}

func (s *fakeStore) DeleteForUser(_ context.Context, userID string) error {
	for id, item := range s.items {
		if item.UserID == userID {
			delete(s.items, id)
		}
	}
	return nil
}

type fakeCatalog struct {
	products map[string]*models.Product
	reserves int
	restocks int
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]*models.Product)}
	for _, p := range products {
		c.products[p.ProductID] = p
	}
	return c
}

func (c *fakeCatalog) FindByID(_ context.Context, productID string) (*models.Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (c *fakeCatalog) ReserveUnit(_ context.Context, productID string) error {
	p, ok := c.products[productID]
	if !ok || p.Inventory <= 0 {
		return catalog.ErrOutOfStock
	}
	p.Inventory--
	c.reserves++
	return nil
}

func (c *fakeCatalog) RestockUnit(_ context.Context, productID string) error {
	p, ok := c.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Inventory++
	c.restocks++
	return nil
}

type fakeLedger struct {
	balances map[string]int64
}

func (l *fakeLedger) Balance(_ context.Context, userID string) (int64, error) {
	balance, ok := l.balances[userID]
	if !ok {
		return 0, coins.ErrNotFound
	}
	return balance, nil
}

func testManager(store *fakeStore, cat *fakeCatalog, ledger *fakeLedger, restock bool) *Manager {
	return NewManager(store, cat, ledger, restock)
}

func TestAddSuccessDecrementsInventoryOnce(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	item, err := m.Add(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if item.ProductID != "p1" || item.ProductName != "Mug" || item.CoinCost != 60 {
		t.Errorf("unexpected snapshot: %+v", item)
	}
	if got := cat.products["p1"].Inventory; got != 2 {
		t.Errorf("inventory = %d, want 2", got)
	}
	if cat.reserves != 1 {
		t.Errorf("reserve count = %d, want 1", cat.reserves)
	}
	// balance is only touched at checkout
	if balance, _ := ledger.Balance(context.Background(), "u1"); balance != 150 {
		t.Errorf("balance = %d, want 150", balance)
	}

	items, _ := m.ItemsForUser(context.Background(), "u1")
	if len(items) != 1 {
		t.Errorf("cart size = %d, want 1", len(items))
	}
}

func TestAddFailsWhenCartOccupied(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(
		&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60},
		&models.Product{ProductID: "p2", Name: "Cap", Inventory: 5, CoinCost: 20},
	)
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	if _, err := m.Add(context.Background(), "u1", "p1"); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}

	// a different product still counts: the cart holds one item, period
	_, err := m.Add(context.Background(), "u1", "p2")
	if !errors.Is(err, ErrAlreadyHasItem) {
		t.Errorf("err = %v, want ErrAlreadyHasItem", err)
	}
	if got := cat.products["p2"].Inventory; got != 5 {
		t.Errorf("p2 inventory changed to %d", got)
	}
}

func TestAddFailsWhenProductMissing(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog()
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	_, err := m.Add(context.Background(), "u1", "nope")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want catalog.ErrNotFound", err)
	}
}

func TestAddFailsWhenOutOfStock(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 0, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	_, err := m.Add(context.Background(), "u1", "p1")
	if !errors.Is(err, catalog.ErrOutOfStock) {
		t.Errorf("err = %v, want catalog.ErrOutOfStock", err)
	}
	if items, _ := m.ItemsForUser(context.Background(), "u1"); len(items) != 0 {
		t.Errorf("cart not empty after failed add")
	}
}

func TestAddFailsWhenBalanceShort(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 10}}
	m := testManager(store, cat, ledger, false)

	_, err := m.Add(context.Background(), "u1", "p1")
	if !errors.Is(err, coins.ErrInsufficientCoins) {
		t.Errorf("err = %v, want coins.ErrInsufficientCoins", err)
	}
	if items, _ := m.ItemsForUser(context.Background(), "u1"); len(items) != 0 {
		t.Errorf("cart not empty after failed add")
	}
	if got := cat.products["p1"].Inventory; got != 3 {
		t.Errorf("inventory = %d, want 3 (unchanged)", got)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	item, err := m.Add(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	removed, err := m.Remove(context.Background(), "u1", item.ItemID)
	if err != nil || !removed {
		t.Fatalf("first Remove = (%v, %v), want (true, nil)", removed, err)
	}

	removed, err = m.Remove(context.Background(), "u1", item.ItemID)
	if err != nil {
		t.Fatalf("second Remove errored: %v", err)
	}
	if removed {
		t.Errorf("second Remove reported true")
	}
}

func TestRemoveIgnoresOtherUsersItems(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	item, err := m.Add(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	removed, err := m.Remove(context.Background(), "u2", item.ItemID)
	if err != nil {
		t.Fatalf("Remove errored: %v", err)
	}
	if removed {
		t.Errorf("another user's removal reported true")
	}
	if items, _ := m.ItemsForUser(context.Background(), "u1"); len(items) != 1 {
		t.Errorf("item disappeared from owner's cart")
	}
}

func TestRemoveForfeitsReservationByDefault(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, false)

	item, _ := m.Add(context.Background(), "u1", "p1")
	if _, err := m.Remove(context.Background(), "u1", item.ItemID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if got := cat.products["p1"].Inventory; got != 2 {
		t.Errorf("inventory = %d, want 2 (no restock)", got)
	}
}

func TestRemoveRestocksWhenPolicyEnabled(t *testing.T) {
	store := newFakeStore()
	cat := newFakeCatalog(&models.Product{ProductID: "p1", Name: "Mug", Inventory: 3, CoinCost: 60})
	ledger := &fakeLedger{balances: map[string]int64{"u1": 150}}
	m := testManager(store, cat, ledger, true)

	item, _ := m.Add(context.Background(), "u1", "p1")
	if _, err := m.Remove(context.Background(), "u1", item.ItemID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if got := cat.products["p1"].Inventory; got != 3 {
		t.Errorf("inventory = %d, want 3 (restocked)", got)
	}
	if cat.restocks != 1 {
		t.Errorf("restock count = %d, want 1", cat.restocks)
	}
}

func TestTotal(t *testing.T) {
	items := []models.CartItem{
		{CoinCost: 60},
		{CoinCost: 25},
	}
	if got := Total(items); got != 85 {
		t.Errorf("Total = %d, want 85", got)
	}
	if got := Total(nil); got != 0 {
		t.Errorf("Total(nil) = %d, want 0", got)
	}
}
