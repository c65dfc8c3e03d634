package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"perku/globals"
	"perku/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	router.GET("/feed", Feed)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed" + query
}

func feedToken(t *testing.T, roles []string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.Claims{UserID: "a1", Role: roles})
	signed, err := token.SignedString(globals.JwtSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestFeedRejectsAnonymousClients(t *testing.T) {
	srv := feedServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		conn.Close()
		t.Fatal("anonymous dial succeeded")
	}
	if resp == nil {
		t.Fatal("no handshake response")
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestFeedRejectsNonAdmins(t *testing.T) {
	srv := feedServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token="+feedToken(t, []string{"user"})), nil)
	if err == nil {
		conn.Close()
		t.Fatal("non-admin dial succeeded")
	}
	if resp == nil {
		t.Fatal("no handshake response")
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestFeedStreamsEventsToAdmins(t *testing.T) {
	srv := feedServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token="+feedToken(t, []string{"admin"})), nil)
	if err != nil {
		t.Fatalf("admin dial failed: %v", err)
	}
	defer conn.Close()

	// the server subscribes after the handshake returns, so keep
	// broadcasting until the event comes through
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				BroadcastStock("p1", 4)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event map[string]any
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event["type"] != "stock_update" || event["productId"] != "p1" {
		t.Errorf("unexpected event: %v", event)
	}
}
