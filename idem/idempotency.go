package idem

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"perku/db"
	"perku/models"
	"perku/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordTTL = 24 * time.Hour

// ErrDuplicateKey reports that a record with the same key already
// exists.
var ErrDuplicateKey = errors.New("idempotency key already recorded")

// RecordStore persists replay records.
type RecordStore interface {
	Insert(ctx context.Context, rec models.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SaveResponse(ctx context.Context, key string, status int, body interface{}) error
	Delete(ctx context.Context, key string) error
}

// mongoRecords stores replay records in the idempotency collection.
type mongoRecords struct{}

func (mongoRecords) Insert(ctx context.Context, rec models.IdempotencyRecord) error {
	_, err := db.IdempotencyCollection.InsertOne(ctx, rec)
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return ErrDuplicateKey
			}
		}
	}
	return err
}

func (mongoRecords) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	if err := db.IdempotencyCollection.FindOne(ctx, bson.M{"key": key}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (mongoRecords) SaveResponse(ctx context.Context, key string, status int, body interface{}) error {
	_, err := db.IdempotencyCollection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"response": bson.M{"status": status, "body": body}}},
	)
	return err
}

func (mongoRecords) Delete(ctx context.Context, key string) error {
	_, err := db.IdempotencyCollection.DeleteOne(ctx, bson.M{"key": key})
	return err
}

// InitIndexes creates the unique key and TTL indexes for replay records.
func InitIndexes(ctx context.Context) error {
	idxs := []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expires_at": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
	_, err := db.IdempotencyCollection.Indexes().CreateMany(ctx, idxs)
	return err
}

func requestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter records status and body while writing through.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	wrote  bool
}

func (c *captureWriter) WriteHeader(statusCode int) {
	if !c.wrote {
		c.status = statusCode
		c.wrote = true
	}
	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Guard makes mutating routes safe against client retries.
type Guard struct {
	store RecordStore
}

func NewGuard(store RecordStore) *Guard {
	return &Guard{store: store}
}

var defaultGuard = NewGuard(mongoRecords{})

// Wrap applies the Mongo-backed guard to a route.
func Wrap(next httprouter.Handle) httprouter.Handle {
	return defaultGuard.Wrap(next)
}

// Wrap makes a mutating route safe against client retries when an
// Idempotency-Key header is supplied.
//
// First request with a key: record a placeholder, run the handler,
// store its response. Replay with the same key and identical request:
// return the stored response. Same key, different request: 409. Lock
// conflicts and server errors are transient, so those responses are
// discarded and a retry runs the handler again.
func (g *Guard) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		userID := utils.GetUserIDFromRequest(r)

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		hash := requestHash(r, body, userID)
		now := time.Now()
		rec := models.IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: hash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(recordTTL),
		}

		ctx := r.Context()
		insertErr := g.store.Insert(ctx, rec)
		if insertErr == nil {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next(cw, r, ps)

			// A lock conflict or server error is transient; caching it
			// would serve the failure back for a day.
			if cw.status == http.StatusTooManyRequests || cw.status >= http.StatusInternalServerError {
				_ = g.store.Delete(ctx, key)
				return
			}

			var parsed interface{}
			if err := json.Unmarshal(cw.buf.Bytes(), &parsed); err != nil {
				parsed = cw.buf.String()
			}
			_ = g.store.SaveResponse(ctx, key, cw.status, parsed)
			return
		}
		if !errors.Is(insertErr, ErrDuplicateKey) {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}

		existing, err := g.store.Get(ctx, key)
		if err != nil {
			http.Error(w, "idempotency lookup error", http.StatusInternalServerError)
			return
		}

		if existing.RequestHash != hash {
			http.Error(w, "idempotency-key conflict", http.StatusConflict)
			return
		}

		if existing.Response != nil {
			var status int
			switch v := existing.Response["status"].(type) {
			case int:
				status = v
			case int32:
				status = int(v)
			case int64:
				status = int(v)
			case float64:
				status = int(v)
			}
			if status == 0 {
				status = http.StatusOK
			}
			utils.RespondWithJSON(w, status, existing.Response["body"])
			return
		}

		// Record exists but the first request is still in flight; the
		// per-user checkout lock keeps the handler safe to run again.
		next(w, r, ps)
	}
}
