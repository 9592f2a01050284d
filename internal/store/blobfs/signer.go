package blobfs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const (
	defaultURLTTL  = 15 * time.Minute
	blobAudience   = "thlink-blob"
	blobPathPrefix = "/blobs/"
)

var (
	errMissingURLSecret  = errors.New("blobfs: url signing secret is required")
	errMissingURLBase    = errors.New("blobfs: public base url is required")
	ErrInvalidBlobToken  = errors.New("blobfs: invalid blob token")
	ErrBlobTokenMismatch = errors.New("blobfs: blob token issued for another blob")
)

type URLSignerConfig struct {
	SigningSecret []byte
	BaseURL       string
	TTL           time.Duration
	Clock         func() time.Time
}

// URLSigner issues expiring download URLs for blobs. Issued URLs are reused until half their
// lifetime has passed on the signer's clock; the cache only bounds memory.
type URLSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	clock   func() time.Time
	issued  *cache.Cache
}

func NewURLSigner(cfg URLSignerConfig) (*URLSigner, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingURLSecret
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingURLBase
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &URLSigner{
		secret:  append([]byte(nil), cfg.SigningSecret...),
		baseURL: baseURL,
		ttl:     ttl,
		clock:   clock,
		issued:  cache.New(ttl/2, ttl),
	}, nil
}

type issuedURL struct {
	url      string
	issuedAt time.Time
}

func (s *URLSigner) SignedURL(id string) (string, error) {
	now := s.clock().UTC()
	if cached, ok := s.issued.Get(id); ok {
		issued := cached.(issuedURL)
		if age := now.Sub(issued.issuedAt); age >= 0 && age < s.ttl/2 {
			return issued.url, nil
		}
	}
	claims := jwt.RegisteredClaims{
		Subject:   id,
		Audience:  []string{blobAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("blobfs: sign %s: %w", id, err)
	}
	signed := s.baseURL + blobPathPrefix + url.PathEscape(id) + "?token=" + url.QueryEscape(token)
	s.issued.SetDefault(id, issuedURL{url: signed, issuedAt: now})
	return signed, nil
}

// Verify checks that token grants access to the blob id.
func (s *URLSigner) Verify(id, token string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		strings.TrimSpace(token),
		claims,
		func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(blobAudience),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlobToken, err)
	}
	if claims.Subject != id {
		return ErrBlobTokenMismatch
	}
	return nil
}
