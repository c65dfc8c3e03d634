package receipts

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"perku/qr"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
)

// PrintReceipt renders a receipt as a printable PDF with an embedded
// signed QR code for verification at the redemption desk.
func PrintReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
		log.Println("PrintReceipt lookup error:", err)
		http.Error(w, "Could not retrieve receipt", http.StatusInternalServerError)
		return
	}

	if receipt.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	payload := qr.Sign("receipt", receipt.ReceiptID, receipt.OrderNumber)
	qrPNG, err := qr.EncodePNG(payload, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Purchase Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order: %s", receipt.OrderNumber))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Date: %s", receipt.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(120, 8, "Product")
	pdf.Cell(40, 8, "Coins")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	for _, item := range receipt.Items {
		pdf.Cell(120, 8, item.ProductName)
		pdf.Cell(40, 8, fmt.Sprintf("%d", item.CoinCost))
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(120, 8, "Total")
	pdf.Cell(40, 8, fmt.Sprintf("%d", receipt.TotalCoins))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("receipt-qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("receipt-qr", 80, pdf.GetY(), 50, 50, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Println("PrintReceipt PDF error:", err)
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", receipt.OrderNumber))
	_, _ = w.Write(buf.Bytes())
}
