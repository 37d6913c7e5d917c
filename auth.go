package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

type tokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

func handleGoogleCallback(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := r.FormValue("credential")
		if credential == "" {
			http.Error(w, "missing credential", http.StatusBadRequest)
			return
		}

		payload, err := a.validate(r.Context(), credential, a.cfg.ClientID)
		if err != nil {
			a.log.Warn("failed to validate token", "err", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		email, _ := payload.Claims["email"].(string)
		if email == "" {
			http.Error(w, "token has no email", http.StatusUnauthorized)
			return
		}

		profile := map[string]any{
			"email":   email,
			"name":    payload.Claims["name"],
			"picture": payload.Claims["picture"],
			"token":   a.signEmail(email),
			"admin":   a.cfg.isAdmin(email),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	}
}

func (a *app) signEmail(email string) string {
	h := hmac.New(sha256.New, []byte(a.cfg.ClientSecret))
	h.Write([]byte(email))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(email)) + "." + sig
}

func (a *app) authorize(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	encoded, _, ok := strings.Cut(token, ".")
	if !ok {
		return "", false
	}
	emailBytes, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	email := string(emailBytes)
	if !hmac.Equal([]byte(a.signEmail(email)), []byte(token)) {
		return "", false
	}
	return email, true
}

func (a *app) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := a.authorize(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if !a.cfg.isAdmin(email) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return email, true
}

func handleAdminCheck(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := a.authorize(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"admin": a.cfg.isAdmin(email)})
	}
}
