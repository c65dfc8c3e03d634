package live

import (
	"log"
	"net/http"
	"sync"

	"perku/middleware"
	"perku/models"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans admin dashboard events out to WebSocket subscribers.
// Slow subscribers drop events rather than block the senders.
type Hub struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]chan map[string]any
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*websocket.Conn]chan map[string]any)}
}

var defaultHub = NewHub()

func (h *Hub) subscribe(conn *websocket.Conn) chan map[string]any {
	ch := make(chan map[string]any, 16)
	h.mu.Lock()
	h.subs[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.subs[conn]; ok {
		close(ch)
		delete(h.subs, conn)
	}
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) broadcast(event map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.subs {
		select {
		case ch <- event:
		default:
			log.Println("live: subscriber channel full, dropping event for", conn.RemoteAddr())
		}
	}
}

// Stop closes all subscriber connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.subs))
	for conn := range h.subs {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.unsubscribe(conn)
	}
}

func Stop() { defaultHub.Stop() }

// BroadcastStock pushes a product inventory change.
func BroadcastStock(productID string, remaining int) {
	defaultHub.broadcast(map[string]any{
		"type":      "stock_update",
		"productId": productID,
		"remaining": remaining,
	})
}

// BroadcastReceipt pushes a completed checkout.
func BroadcastReceipt(receipt *models.Receipt) {
	defaultHub.broadcast(map[string]any{
		"type":        "receipt_created",
		"receiptId":   receipt.ReceiptID,
		"orderNumber": receipt.OrderNumber,
		"totalCoins":  receipt.TotalCoins,
	})
}

// Feed authenticates the dashboard client, upgrades the connection,
// and streams events until the client disconnects. Browsers cannot
// set an Authorization header on a WebSocket, so the token rides in
// the query string.
func Feed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, err := middleware.ValidateJWT(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	admin := false
	for _, role := range claims.Role {
		if role == "admin" {
			admin = true
			break
		}
	}
	if !admin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("live: upgrade error:", err)
		return
	}

	ch := defaultHub.subscribe(conn)
	defer defaultHub.unsubscribe(conn)

	// Drain client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				defaultHub.unsubscribe(conn)
				return
			}
		}
	}()

	for event := range ch {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
