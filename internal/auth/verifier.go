// Package auth provides JWT verification helpers.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Modes accepted by NewVerifier.
const (
	ModeOff  = "off"  // no bearer tokens; identity comes from request headers
	ModeDev  = "dev"  // unsigned "client:role" tokens
	ModeHMAC = "hmac" // HS256
	ModeJWKS = "jwks" // RS256 keys fetched from a JWKS URL
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
)

type Config struct {
	Mode        string
	HMACSecret  string
	JWKSURL     string
	ClientClaim string // default "sub"
	RoleClaim   string // default "role"
}

// Verifier validates JWTs and extracts client/role claims.
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	JWKSURL     string
	ClientClaim string
	RoleClaim   string
	http        *http.Client
	mu          sync.RWMutex
	jwks        jwks
	lastFetch   time.Time
	cacheTTL    time.Duration
	now         func() time.Time
}

type jwks struct {
	Keys []jwk `json:"keys"`
}
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

type Principal struct {
	Client string
	Role   string
}

func NewVerifier(c Config) (*Verifier, error) {
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	if mode == "" {
		mode = ModeOff
	}
	switch mode {
	case ModeOff, ModeDev:
	case ModeHMAC:
		if c.HMACSecret == "" {
			return nil, errors.New("auth: hmac mode needs a secret")
		}
	case ModeJWKS:
		if c.JWKSURL == "" {
			return nil, errors.New("auth: jwks mode needs a JWKS URL")
		}
	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", c.Mode)
	}
	return &Verifier{
		Mode:        mode,
		HMACSecret:  []byte(c.HMACSecret),
		JWKSURL:     c.JWKSURL,
		ClientClaim: orDefault(c.ClientClaim, "sub"),
		RoleClaim:   orDefault(c.RoleClaim, "role"),
		http:        &http.Client{Timeout: 5 * time.Second},
		cacheTTL:    10 * time.Minute,
		now:         time.Now,
	}, nil
}

func orDefault(v, d string) string {
	if v != "" {
		return v
	}
	return d
}

// Enabled reports whether requests must carry a bearer token.
func (v *Verifier) Enabled() bool { return v != nil && v.Mode != ModeOff }

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == ModeDev {
		// token format: client:role
		parts := strings.Split(token, ":")
		if len(parts) >= 2 && parts[0] != "" {
			return Principal{Client: parts[0], Role: strings.ToLower(parts[1])}, nil
		}
		return Principal{}, fmt.Errorf("%w: expected client:role", ErrInvalidToken)
	}
	// split token
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, fmt.Errorf("%w: not a JWT", ErrInvalidToken)
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, fmt.Errorf("%w: signature: %v", ErrInvalidToken, err)
	}
	var hdr map[string]any
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Principal{}, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}
	alg, _ := hdr["alg"].(string)
	kid, _ := hdr["kid"].(string)
	signingInput := []byte(segs[0] + "." + segs[1])
	switch v.Mode {
	case ModeHMAC:
		if alg != "HS256" {
			return Principal{}, fmt.Errorf("%w: unsupported alg %q for hmac", ErrInvalidToken, alg)
		}
		mac := hmac.New(sha256.New, v.HMACSecret)
		mac.Write(signingInput)
		if !hmac.Equal(mac.Sum(nil), sig) {
			return Principal{}, fmt.Errorf("%w: bad signature", ErrInvalidToken)
		}
	case ModeJWKS:
		if alg != "RS256" {
			return Principal{}, fmt.Errorf("%w: unsupported alg %q for jwks", ErrInvalidToken, alg)
		}
		pub, err := v.getRSAPublicKey(kid)
		if err != nil {
			return Principal{}, err
		}
		h := sha256.Sum256(signingInput)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig); err != nil {
			return Principal{}, fmt.Errorf("%w: bad signature", ErrInvalidToken)
		}
	default:
		return Principal{}, fmt.Errorf("auth: mode %q does not verify tokens", v.Mode)
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() >= int64(exp) {
		return Principal{}, ErrExpired
	}
	client, _ := claims[v.ClientClaim].(string)
	role, _ := claims[v.RoleClaim].(string)
	if client == "" {
		return Principal{}, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, v.ClientClaim)
	}
	if role == "" {
		role = "client"
	}
	return Principal{Client: client, Role: strings.ToLower(role)}, nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

// get RSAPublicKey from JWKS cache/fetch
func (v *Verifier) getRSAPublicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	cached := v.jwks
	stale := time.Since(v.lastFetch) > v.cacheTTL
	v.mu.RUnlock()
	if len(cached.Keys) == 0 || stale {
		if err := v.fetchJWKS(); err != nil {
			return nil, err
		}
		v.mu.RLock()
		cached = v.jwks
		v.mu.RUnlock()
	}
	for _, k := range cached.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
			if err != nil {
				return nil, err
			}
			eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
			if err != nil {
				return nil, err
			}
			n := new(big.Int).SetBytes(nBytes)
			e := new(big.Int).SetBytes(eBytes)
			return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
		}
	}
	return nil, fmt.Errorf("%w: kid %q not found in JWKS", ErrInvalidToken, kid)
}

func (v *Verifier) fetchJWKS() error {
	req, err := http.NewRequest(http.MethodGet, v.JWKSURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: HTTP %d", resp.StatusCode)
	}
	var j jwks
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return err
	}
	v.mu.Lock()
	v.jwks = j
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}
