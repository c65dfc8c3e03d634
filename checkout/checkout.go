package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"perku/cart"
	"perku/models"
)

var ErrEmptyCart = errors.New("cart is empty")

// CartSource is the slice of the cart manager checkout consumes.
type CartSource interface {
	ItemsForUser(ctx context.Context, userID string) ([]models.CartItem, error)
	ClearForUser(ctx context.Context, userID string) error
}

// Ledger debits and credits coin balances atomically.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int64) error
	Credit(ctx context.Context, userID string, amount int64) error
}

// ReceiptSink persists completed purchases.
type ReceiptSink interface {
	Create(ctx context.Context, userID, orderNumber string, totalCoins int64, items []models.ReceiptItem) (*models.Receipt, error)
}

// Orchestrator converts a cart into a receipt.
type Orchestrator struct {
	cart     CartSource
	ledger   Ledger
	receipts ReceiptSink
}

func NewOrchestrator(cartSource CartSource, ledger Ledger, receipts ReceiptSink) *Orchestrator {
	return &Orchestrator{cart: cartSource, ledger: ledger, receipts: receipts}
}

// Checkout debits the cart total and issues a receipt.
//
// The debit happens before the receipt write so the irreversible,
// user-facing artifact only exists once the coins are actually gone.
// A failed receipt write credits the debit back. Clearing the cart is
// best effort: the purchase has completed by then, so a failure is
// logged and the receipt still returned.
func (o *Orchestrator) Checkout(ctx context.Context, userID string) (*models.Receipt, error) {
	items, err := o.cart.ItemsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	total := cart.Total(items)
	lineItems := make([]models.ReceiptItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, models.ReceiptItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			CoinCost:    item.CoinCost,
		})
	}

	if err := o.ledger.Debit(ctx, userID, total); err != nil {
		return nil, err
	}

	receipt, err := o.receipts.Create(ctx, userID, OrderNumber(), total, lineItems)
	if err != nil {
		if creditErr := o.ledger.Credit(ctx, userID, total); creditErr != nil {
			log.Println("checkout: refund after failed receipt write also failed for user", userID, ":", creditErr)
		}
		return nil, err
	}

	if err := o.cart.ClearForUser(ctx, userID); err != nil {
		log.Println("checkout: cart clear failed for user", userID, ":", err)
	}

	return receipt, nil
}

// OrderNumber derives a human-readable order number from the current
// time. The six-digit suffix repeats eventually; it is a display
// handle, not a unique key.
func OrderNumber() string {
	return fmt.Sprintf("ORD-%06d", time.Now().UnixMilli()%1_000_000)
}
