package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"perku/globals"

	qrcode "github.com/skip2/go-qrcode"
)

var hmacSecret = []byte(globals.EnvOr("QR_SECRET", "your-very-secret-key"))

const allowedDrift = 24 * 60 * 60 // seconds; printed codes stay valid for a day

// Sign returns a signed payload string: kind|id|code|timestamp|signature
func Sign(kind, id, code string) string {
	timestamp := time.Now().Unix()
	data := fmt.Sprintf("%s|%s|%s|%d", kind, id, code, timestamp)

	h := hmac.New(sha256.New, hmacSecret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

// Verify checks a payload produced by Sign: kind|id|code|timestamp|HMAC
func Verify(payload string) (kind, id, code string, err error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 5 {
		return "", "", "", errors.New("invalid QR format")
	}

	kind = parts[0]
	id = parts[1]
	code = parts[2]
	timestampStr := parts[3]
	signature := parts[4]

	ts, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return "", "", "", errors.New("invalid timestamp")
	}

	now := time.Now().Unix()
	if abs(now-ts) > allowedDrift {
		return "", "", "", errors.New("code expired or from the future")
	}

	data := fmt.Sprintf("%s|%s|%s|%s", kind, id, code, timestampStr)
	h := hmac.New(sha256.New, hmacSecret)
	h.Write([]byte(data))
	expectedSig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSig)) {
		return "", "", "", errors.New("invalid signature")
	}

	return kind, id, code, nil
}

// EncodePNG renders a payload as a QR PNG of the given size.
func EncodePNG(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// WritePNG renders a payload as a QR PNG file on disk.
func WritePNG(payload, path string, size int) error {
	return qrcode.WriteFile(payload, qrcode.Medium, size, path)
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
