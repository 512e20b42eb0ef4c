// Package identity delegates authentication to Google via the OAuth
// authorization-code flow and represents the resulting login as a signed,
// stateless session token.
package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const googleDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// Identity is a verified (email, subject) pair returned by the provider.
type Identity struct {
	Email   string
	Subject string
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// GoogleConfig holds the OAuth client registration for the funnel.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	DiscoveryURL string
	HTTPClient   *http.Client
}

// GoogleVerifier implements the authorization-code flow against Google and
// validates the returned ID token against Google's published JWKS. Any
// verification failure is reported as an error; no partial trust.
type GoogleVerifier struct {
	cfg        GoogleConfig
	httpClient *http.Client

	mu        sync.Mutex
	discovery *discoveryDocument
}

func NewGoogleVerifier(cfg GoogleConfig) *GoogleVerifier {
	if cfg.DiscoveryURL == "" {
		cfg.DiscoveryURL = googleDiscoveryURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &GoogleVerifier{cfg: cfg, httpClient: httpClient}
}

// AuthorizeURL builds the authorization-code URL for the given CSRF state.
// Offline access with a consent prompt is requested, matching the scopes
// the funnel registers with Google.
func (v *GoogleVerifier) AuthorizeURL(ctx context.Context, state string) (string, error) {
	doc, err := v.discover(ctx)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client_id", v.cfg.ClientID)
	q.Set("redirect_uri", v.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email")
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")

	return doc.AuthorizationEndpoint + "?" + q.Encode(), nil
}

// Exchange trades an authorization code for tokens and returns the verified
// identity from the ID token.
func (v *GoogleVerifier) Exchange(ctx context.Context, code string) (Identity, error) {
	if strings.TrimSpace(code) == "" {
		return Identity{}, errors.New("authorization code is required")
	}

	doc, err := v.discover(ctx)
	if err != nil {
		return Identity{}, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", v.cfg.ClientID)
	form.Set("client_secret", v.cfg.ClientSecret)
	form.Set("redirect_uri", v.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, doc.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return Identity{}, fmt.Errorf("invalid token response: %w", err)
	}
	if tokens.IDToken == "" {
		return Identity{}, errors.New("token response missing id_token")
	}

	return v.validateIDToken(ctx, doc, tokens.IDToken)
}

func (v *GoogleVerifier) validateIDToken(ctx context.Context, doc *discoveryDocument, raw string) (Identity, error) {
	keys, err := v.fetchJWKS(ctx, doc.JWKSURI)
	if err != nil {
		return Identity{}, err
	}

	claims := &idTokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("no JWKS key for kid %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(doc.Issuer),
		jwt.WithAudience(v.cfg.ClientID),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("id_token validation failed: %w", err)
	}
	if !tok.Valid {
		return Identity{}, errors.New("id_token is not valid")
	}

	subject := strings.TrimSpace(claims.Subject)
	email := strings.TrimSpace(claims.Email)
	if subject == "" || email == "" {
		return Identity{}, errors.New("id_token missing subject or email")
	}

	return Identity{Email: email, Subject: subject}, nil
}

func (v *GoogleVerifier) discover(ctx context.Context) (*discoveryDocument, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.discovery != nil {
		return v.discovery, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.DiscoveryURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oidc discovery returned status %d", resp.StatusCode)
	}

	doc := &discoveryDocument{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(doc); err != nil {
		return nil, fmt.Errorf("invalid discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.JWKSURI == "" {
		return nil, errors.New("discovery document is incomplete")
	}

	v.discovery = doc
	return doc, nil
}

func (v *GoogleVerifier) fetchJWKS(ctx context.Context, uri string) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid jwks document: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("no usable RSA keys in JWKS")
	}

	return keys, nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eBytes)
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
