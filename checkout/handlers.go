package checkout

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"perku/cart"
	"perku/coins"
	"perku/live"
	"perku/models"
	"perku/rdx"
	"perku/receipts"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
)

// lockTTL bounds how long a checkout may hold its per-user lock.
const lockTTL = 5 * time.Second

// mongoLedger adapts the coins package to the Ledger interface.
type mongoLedger struct{}

func (mongoLedger) Debit(ctx context.Context, userID string, amount int64) error {
	return coins.Debit(ctx, userID, amount)
}

func (mongoLedger) Credit(ctx context.Context, userID string, amount int64) error {
	return coins.Credit(ctx, userID, amount)
}

// receiptStore adapts the receipts package to the ReceiptSink interface.
type receiptStore struct{}

func (receiptStore) Create(ctx context.Context, userID, orderNumber string, totalCoins int64, items []models.ReceiptItem) (*models.Receipt, error) {
	return receipts.Create(ctx, userID, orderNumber, totalCoins, items)
}

var orchestrator = NewOrchestrator(cart.DefaultManager(), mongoLedger{}, receiptStore{})

// Checkout converts the caller's cart into a receipt.
func Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// One checkout per user at a time.
	acquired, err := rdx.RdxSetNX("checkout_lock:"+userID, "1", lockTTL)
	if err != nil || !acquired {
		http.Error(w, "Checkout already in progress, please retry", http.StatusTooManyRequests)
		return
	}
	defer func() {
		if err := rdx.RdxDel("checkout_lock:" + userID); err != nil {
			log.Println("checkout: lock release error for user", userID, ":", err)
		}
	}()

	receipt, err := orchestrator.Checkout(ctx, userID)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}

	live.BroadcastReceipt(receipt)

	utils.RespondWithJSON(w, http.StatusCreated, receipt)
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		utils.RespondWithError(w, http.StatusConflict, "Your cart is empty")
	case errors.Is(err, coins.ErrInsufficientCoins):
		utils.RespondWithError(w, http.StatusConflict, "You do not have enough coins to complete the purchase")
	case errors.Is(err, coins.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "User account not found")
	default:
		log.Println("Checkout error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process checkout")
	}
}
