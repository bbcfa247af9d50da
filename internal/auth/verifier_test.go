package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func segment(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func hs256(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	in := segment(t, map[string]string{"alg": "HS256", "typ": "JWT"}) + "." + segment(t, claims)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(in))
	return in + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestNewVerifierModes(t *testing.T) {
	if v, err := NewVerifier(Config{}); err != nil || v.Enabled() {
		t.Fatalf("empty mode should be off: %v", err)
	}
	if _, err := NewVerifier(Config{Mode: "hmac"}); err == nil {
		t.Fatal("hmac without secret must fail")
	}
	if _, err := NewVerifier(Config{Mode: "jwks"}); err == nil {
		t.Fatal("jwks without url must fail")
	}
	if _, err := NewVerifier(Config{Mode: "saml"}); err == nil {
		t.Fatal("unknown mode must fail")
	}
	var nilV *Verifier
	if nilV.Enabled() {
		t.Fatal("nil verifier must be disabled")
	}
}

func TestDevToken(t *testing.T) {
	v, _ := NewVerifier(Config{Mode: "dev"})
	p, err := v.Verify("acme:Admin")
	if err != nil || p.Client != "acme" || p.Role != "admin" {
		t.Fatalf("got %+v %v", p, err)
	}
	if _, err := v.Verify("acme"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestHMACToken(t *testing.T) {
	v, _ := NewVerifier(Config{Mode: "hmac", HMACSecret: "k"})
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	p, err := v.Verify(hs256(t, "k", map[string]any{"sub": "fleet-1", "exp": now.Add(time.Minute).Unix()}))
	if err != nil || p.Client != "fleet-1" || p.Role != "client" {
		t.Fatalf("got %+v %v", p, err)
	}
	if _, err := v.Verify(hs256(t, "other", map[string]any{"sub": "fleet-1"})); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("bad signature: %v", err)
	}
	if _, err := v.Verify(hs256(t, "k", map[string]any{"sub": "fleet-1", "exp": now.Unix()})); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired: %v", err)
	}
	if _, err := v.Verify(hs256(t, "k", map[string]any{"role": "admin"})); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing sub: %v", err)
	}
	if _, err := v.Verify("a.b"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("malformed: %v", err)
	}
}

func TestJWKSToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Kid: "k1",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	sign := func(kid string) string {
		in := segment(t, map[string]string{"alg": "RS256", "kid": kid}) + "." + segment(t, map[string]any{"sub": "svc", "role": "admin"})
		h := sha256.Sum256([]byte(in))
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, h[:])
		if err != nil {
			t.Fatal(err)
		}
		return in + "." + base64.RawURLEncoding.EncodeToString(sig)
	}

	v, _ := NewVerifier(Config{Mode: "jwks", JWKSURL: srv.URL})
	p, err := v.Verify(sign("k1"))
	if err != nil || p.Client != "svc" || p.Role != "admin" {
		t.Fatalf("got %+v %v", p, err)
	}
	if _, err := v.Verify(sign("k2")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown kid: %v", err)
	}
}
