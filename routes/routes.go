package routes

import (
	"net/http"

	"perku/admin"
	"perku/cart"
	"perku/catalog"
	"perku/checkout"
	"perku/idem"
	"perku/live"
	"perku/middleware"
	"perku/ratelim"
	"perku/receipts"
	"perku/users"

	"github.com/julienschmidt/httprouter"
)

func AddCatalogRoutes(router *httprouter.Router) {
	router.GET("/api/products", catalog.GetProducts)
	router.GET("/api/products/:id", catalog.GetProduct)
	router.GET("/api/products/:id/qrcode", catalog.GetProductQR)
	router.GET("/api/scan", catalog.ResolveQR)
}

func AddCartRoutes(router *httprouter.Router) {
	router.GET("/api/cart", middleware.Authenticate(cart.GetCart))
	router.POST("/api/cart", ratelim.RateLimit(middleware.Authenticate(cart.AddToCart)))
	router.DELETE("/api/cart/:itemId", middleware.Authenticate(cart.RemoveFromCart))
}

func AddCheckoutRoutes(router *httprouter.Router) {
	router.POST("/api/checkout", ratelim.RateLimit(middleware.Authenticate(idem.Wrap(checkout.Checkout))))
}

func AddReceiptRoutes(router *httprouter.Router) {
	router.GET("/api/receipts", middleware.Authenticate(receipts.GetReceipts))
	router.GET("/api/receipts/:id", middleware.Authenticate(receipts.GetReceipt))
	router.GET("/api/receipts/:id/pdf", middleware.Authenticate(receipts.PrintReceipt))
}

func AddProfileRoutes(router *httprouter.Router) {
	router.GET("/api/profile", middleware.Authenticate(users.GetProfile))
}

func AddAdminRoutes(router *httprouter.Router) {
	router.POST("/api/admin/products", middleware.RequireAdmin(admin.CreateProduct))
	router.PUT("/api/admin/products/:id", middleware.RequireAdmin(admin.UpdateProduct))
	router.DELETE("/api/admin/products/:id", middleware.RequireAdmin(admin.DeleteProduct))
	router.GET("/api/admin/users", middleware.RequireAdmin(admin.GetUsers))
	router.POST("/api/admin/users", middleware.RequireAdmin(admin.ProvisionUser))
	router.GET("/api/admin/reports", middleware.RequireAdmin(admin.GetReports))
	router.POST("/api/admin/verify-receipt", middleware.RequireAdmin(receipts.VerifyReceipt))
	// websocket clients cannot set an Authorization header, so the feed
	// validates a query-string token and the admin role itself
	router.GET("/api/admin/live", live.Feed)
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/productpic/*filepath", http.Dir("static/productpic"))
}
