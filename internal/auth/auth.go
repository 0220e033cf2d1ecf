// Package auth yields a trusted player id from a request. Production
// clients send signed mini-app init data; a plain id header is accepted
// as a development fallback.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	initDataHeader = "X-Telegram-Init-Data"
	devIDHeader    = "X-Player-Id"
)

type ctxKey struct{}

// PlayerID returns the authenticated player id placed by Middleware.
func PlayerID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

// Middleware authenticates every request: validated init data first, then
// the dev header, otherwise 401.
func Middleware(botToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(initDataHeader); raw != "" {
				if id, ok := ValidateInitData(raw, botToken); ok {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
					return
				}
			}
			if raw := r.Header.Get(devIDHeader); raw != "" {
				if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
					return
				}
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

// ValidateInitData checks the mini-app signature: the secret key is
// HMAC-SHA256("WebAppData", botToken) and the signed payload is the
// sorted k=v pairs joined with newlines, hash excluded.
func ValidateInitData(initData, botToken string) (int64, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, false
	}
	received := values.Get("hash")
	if received == "" {
		return 0, false
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(received)) {
		return 0, false
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return 0, false
	}
	return user.ID, true
}
