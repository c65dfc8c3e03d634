package admin

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"perku/catalog"
	"perku/models"
	"perku/receipts"
	"perku/users"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const productImageDir = "static/productpic"

// CreateProduct inserts a catalogue entry from a multipart form.
// The product image is optional; when present a 300px thumbnail is
// generated alongside it.
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil || price <= 0 {
		http.Error(w, "Invalid price", http.StatusBadRequest)
		return
	}
	inventory, err := strconv.Atoi(r.FormValue("inventory"))
	if err != nil || inventory < 0 {
		http.Error(w, "Invalid inventory", http.StatusBadRequest)
		return
	}
	coinCost, err := strconv.ParseInt(r.FormValue("coin_cost"), 10, 64)
	if err != nil || coinCost <= 0 {
		http.Error(w, "Invalid coin cost", http.StatusBadRequest)
		return
	}

	product := models.Product{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Inventory:   inventory,
		CoinCost:    coinCost,
	}
	if product.Name == "" {
		http.Error(w, "Missing product name", http.StatusBadRequest)
		return
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if !utils.ValidateImageFileType(w, header) {
			return
		}
		original, thumb, err := utils.SaveImageWithThumb(file, productImageDir)
		if err != nil {
			log.Println("CreateProduct image save error:", err)
			http.Error(w, "Failed to save product image", http.StatusInternalServerError)
			return
		}
		product.ImageURL = "/productpic/" + original
		product.ThumbURL = "/productpic/thumb/" + thumb
	}

	if err := catalog.Create(ctx, &product); err != nil {
		log.Println("CreateProduct insert error:", err)
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct applies a JSON partial update to a product.
func UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		Inventory   *int     `json:"inventory"`
		CoinCost    *int64   `json:"coin_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	fields := bson.M{}
	if payload.Name != nil {
		fields["name"] = *payload.Name
	}
	if payload.Description != nil {
		fields["description"] = *payload.Description
	}
	if payload.Price != nil {
		if *payload.Price <= 0 {
			http.Error(w, "Invalid price", http.StatusBadRequest)
			return
		}
		fields["price"] = *payload.Price
	}
	if payload.Inventory != nil {
		if *payload.Inventory < 0 {
			http.Error(w, "Invalid inventory", http.StatusBadRequest)
			return
		}
		fields["inventory"] = *payload.Inventory
	}
	if payload.CoinCost != nil {
		if *payload.CoinCost <= 0 {
			http.Error(w, "Invalid coin cost", http.StatusBadRequest)
			return
		}
		fields["coin_cost"] = *payload.CoinCost
	}
	if len(fields) == 0 {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}

	err := catalog.Update(ctx, ps.ByName("id"), fields)
	if err == catalog.ErrNotFound {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("UpdateProduct error:", err)
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "updated"})
}

// DeleteProduct removes a catalogue entry.
func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := catalog.Delete(ctx, ps.ByName("id"))
	if err == catalog.ErrNotFound {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("DeleteProduct error:", err)
		http.Error(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "deleted"})
}

// GetUsers lists all registered users.
func GetUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := users.List(ctx)
	if err != nil {
		log.Println("GetUsers error:", err)
		http.Error(w, "Could not retrieve users", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

// ProvisionUser registers an identity-provider user locally with the
// starting coin grant.
func ProvisionUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		UserID  string `json:"userid"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Company string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	user, err := users.Provision(ctx, body.UserID, body.Name, body.Email, body.Company)
	if err != nil {
		log.Println("ProvisionUser error:", err)
		http.Error(w, "Failed to provision user", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, user)
}

// GetReports returns the dashboard counts.
func GetReports(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userCount, err := users.Count(ctx)
	if err != nil {
		log.Println("GetReports user count error:", err)
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}
	productCount, err := catalog.Count(ctx)
	if err != nil {
		log.Println("GetReports product count error:", err)
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}
	orderCount, err := receipts.Count(ctx)
	if err != nil {
		log.Println("GetReports order count error:", err)
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"users":    userCount,
		"products": productCount,
		"orders":   orderCount,
	})
}
