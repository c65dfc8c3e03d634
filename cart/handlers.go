package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"perku/catalog"
	"perku/coins"
	"perku/live"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
)

var manager = DefaultManager()

// AddToCart places a product in the caller's cart.
func AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	item, err := manager.Add(ctx, userID, body.ProductID)
	if err != nil {
		respondCartError(w, err)
		return
	}

	if product, err := catalog.FindByID(ctx, item.ProductID); err == nil {
		live.BroadcastStock(product.ProductID, product.Inventory)
	}

	utils.RespondWithJSON(w, http.StatusCreated, item)
}

// GetCart returns all cart items for the user.
func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := manager.ItemsForUser(ctx, userID)
	if err != nil {
		log.Println("GetCart error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

// RemoveFromCart deletes a cart item. Repeating the call is safe.
func RemoveFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	removed, err := manager.Remove(ctx, userID, ps.ByName("itemId"))
	if err != nil {
		log.Println("RemoveFromCart error:", err)
		http.Error(w, "Failed to remove item", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"removed": removed})
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAlreadyHasItem):
		utils.RespondWithError(w, http.StatusConflict, "You already have a product in your cart. Complete or remove it first.")
	case errors.Is(err, catalog.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "The product does not exist or is unavailable")
	case errors.Is(err, catalog.ErrOutOfStock):
		utils.RespondWithError(w, http.StatusConflict, "The product is out of stock")
	case errors.Is(err, coins.ErrInsufficientCoins):
		utils.RespondWithError(w, http.StatusConflict, "You do not have enough coins for this product")
	case errors.Is(err, coins.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "User account not found")
	default:
		log.Println("AddToCart error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add to cart")
	}
}
