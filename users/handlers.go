package users

import (
	"context"
	"log"
	"net/http"
	"time"

	"perku/utils"

	"github.com/julienschmidt/httprouter"
)

// GetProfile returns the caller's own user record.
func GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := Get(ctx, userID)
	if err == ErrNotFound {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("GetProfile error:", err)
		http.Error(w, "Could not retrieve profile", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}
