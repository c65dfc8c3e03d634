package receipts

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"perku/qr"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
)

// GetReceipts lists the caller's receipts, newest first.
func GetReceipts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := ListForUser(ctx, userID)
	if err != nil {
		log.Println("GetReceipts error:", err)
		http.Error(w, "Could not retrieve receipts", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GetReceipt returns one receipt owned by the caller.
func GetReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	receipt, err := GetByID(ctx, ps.ByName("id"))
	if err == ErrNotFound {
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("GetReceipt error:", err)
		http.Error(w, "Could not retrieve receipt", http.StatusInternalServerError)
		return
	}

	if receipt.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, receipt)
}

// VerifyReceipt checks a scanned receipt QR payload at the redemption
// desk. The payload must carry a valid signature and match a stored
// receipt.
func VerifyReceipt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Payload == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	kind, receiptID, orderNumber, err := qr.Verify(body.Payload)
	if err != nil || kind != "receipt" {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": false, "reason": "invalid or expired code"})
		return
	}

	receipt, err := GetByID(ctx, receiptID)
	if err == ErrNotFound || (err == nil && receipt.OrderNumber != orderNumber) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": false, "reason": "no matching receipt"})
		return
	}
	if err != nil {
		log.Println("VerifyReceipt lookup error:", err)
		http.Error(w, "Could not verify receipt", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": true, "receipt": receipt})
}
