package idem

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"perku/models"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
)

type fakeRecords struct {
	recs map[string]*models.IdempotencyRecord
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: make(map[string]*models.IdempotencyRecord)}
}

func (s *fakeRecords) Insert(_ context.Context, rec models.IdempotencyRecord) error {
	if _, ok := s.recs[rec.Key]; ok {
		return ErrDuplicateKey
	}
	copied := rec
	s.recs[rec.Key] = &copied
	return nil
}

func (s *fakeRecords) Get(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	rec, ok := s.recs[key]
	if !ok {
		return nil, errors.New("record not found")
	}
	return rec, nil
}

func (s *fakeRecords) SaveResponse(_ context.Context, key string, status int, body interface{}) error {
	rec, ok := s.recs[key]
	if !ok {
		return errors.New("record not found")
	}
	rec.Response = map[string]interface{}{"status": status, "body": body}
	return nil
}

func (s *fakeRecords) Delete(_ context.Context, key string) error {
	delete(s.recs, key)
	return nil
}

func post(handler httprouter.Handle, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler(rec, req, nil)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestWrapPassesThroughWithoutKey(t *testing.T) {
	store := newFakeRecords()
	calls := 0
	handler := NewGuard(store).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"n": calls})
	})

	post(handler, "", `{}`)
	post(handler, "", `{}`)

	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
	if len(store.recs) != 0 {
		t.Errorf("records stored without a key: %d", len(store.recs))
	}
}

func TestWrapReplaysStoredResponse(t *testing.T) {
	store := newFakeRecords()
	calls := 0
	handler := NewGuard(store).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"order": "ORD-000123"})
	})

	first := post(handler, "k1", `{"productId":"p1"}`)
	second := post(handler, "k1", `{"productId":"p1"}`)

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Errorf("statuses = (%d, %d), want both 201", first.Code, second.Code)
	}
	if got := decodeBody(t, second); got["order"] != "ORD-000123" {
		t.Errorf("replayed body = %v", got)
	}
}

func TestWrapRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeRecords()
	calls := 0
	handler := NewGuard(store).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true})
	})

	post(handler, "k1", `{"productId":"p1"}`)
	conflict := post(handler, "k1", `{"productId":"p2"}`)

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if conflict.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", conflict.Code)
	}
}

func TestWrapRetriesAfterLockConflict(t *testing.T) {
	store := newFakeRecords()
	statuses := []int{http.StatusTooManyRequests, http.StatusCreated}
	calls := 0
	handler := NewGuard(store).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		status := statuses[calls]
		calls++
		utils.RespondWithJSON(w, status, utils.M{"n": calls})
	})

	first := post(handler, "k1", `{}`)
	second := post(handler, "k1", `{}`)

	if first.Code != http.StatusTooManyRequests {
		t.Errorf("first status = %d, want 429", first.Code)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("retry status = %d, want 201", second.Code)
	}
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestWrapRetriesAfterServerError(t *testing.T) {
	store := newFakeRecords()
	statuses := []int{http.StatusInternalServerError, http.StatusCreated}
	calls := 0
	handler := NewGuard(store).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		status := statuses[calls]
		calls++
		utils.RespondWithJSON(w, status, utils.M{"n": calls})
	})

	first := post(handler, "k1", `{}`)
	second := post(handler, "k1", `{}`)

	if first.Code != http.StatusInternalServerError {
		t.Errorf("first status = %d, want 500", first.Code)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("retry status = %d, want 201", second.Code)
	}
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestWrapCachesValidationFailures(t *testing.T) {
	store := newFakeRecords()
	calls := 0
	handler := NewGuard(store).Wrap(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		utils.RespondWithError(w, http.StatusConflict, "Your cart is empty")
	})

	post(handler, "k1", `{}`)
	second := post(handler, "k1", `{}`)

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if second.Code != http.StatusConflict {
		t.Errorf("replay status = %d, want 409", second.Code)
	}
}
