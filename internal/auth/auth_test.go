package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

// signInitData produces a payload the way the mini-app platform does.
func signInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestValidateInitData(t *testing.T) {
	const token = "12345:test-token"

	values := url.Values{}
	values.Set("user", `{"id":777,"first_name":"Anna"}`)
	values.Set("auth_date", "1700000000")
	signed := signInitData(values, token)

	id, ok := ValidateInitData(signed, token)
	if !ok || id != 777 {
		t.Fatalf("valid payload rejected: id=%d ok=%v", id, ok)
	}

	if _, ok := ValidateInitData(signed, "other-token"); ok {
		t.Fatalf("payload accepted under the wrong token")
	}

	tampered := strings.Replace(signed, "777", "778", 1)
	if _, ok := ValidateInitData(tampered, token); ok {
		t.Fatalf("tampered payload accepted")
	}

	if _, ok := ValidateInitData("user=%7B%22id%22%3A777%7D", token); ok {
		t.Fatalf("payload without hash accepted")
	}
}

func TestMiddleware(t *testing.T) {
	const token = "12345:test-token"

	var gotID int64
	handler := Middleware(token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = PlayerID(r)
	}))

	t.Run("signed init data", func(t *testing.T) {
		values := url.Values{}
		values.Set("user", `{"id":42}`)
		signed := signInitData(values, token)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Telegram-Init-Data", signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || gotID != 42 {
			t.Fatalf("status=%d id=%d", rec.Code, gotID)
		}
	})

	t.Run("dev header fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Player-Id", "9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || gotID != 9 {
			t.Fatalf("status=%d id=%d", rec.Code, gotID)
		}
	})

	t.Run("no identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status=%d, want 401", rec.Code)
		}
	})
}
