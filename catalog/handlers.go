package catalog

import (
	"context"
	"log"
	"net/http"
	"time"

	"perku/qr"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
)

// GetProducts returns the full catalogue.
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	products, err := List(ctx)
	if err != nil {
		log.Println("GetProducts error:", err)
		http.Error(w, "Could not retrieve products", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, products)
}

// GetProduct returns a single product by id.
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := FindByID(ctx, ps.ByName("id"))
	if err == ErrNotFound {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("GetProduct error:", err)
		http.Error(w, "Could not retrieve product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}

// ResolveQR resolves a scanned code string (?code=) to a product.
func ResolveQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing QR code parameter", http.StatusBadRequest)
		return
	}

	product, err := FindByCode(ctx, code)
	if err == ErrNotFound {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("ResolveQR error:", err)
		http.Error(w, "Failed to fetch product", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}

// GetProductQR serves the product's QR image. The PNG encodes the bare
// stored code so printed stickers never expire.
func GetProductQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := FindByID(ctx, ps.ByName("id"))
	if err == ErrNotFound {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("GetProductQR error:", err)
		http.Error(w, "Could not retrieve product", http.StatusInternalServerError)
		return
	}

	png, err := qr.EncodePNG(product.QRCode, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
