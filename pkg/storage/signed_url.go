package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenFormat    = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedURLSigner creates and validates download tokens bound to one stored file.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for storedName and its expiry.
func (s *SignedURLSigner) Sign(storedName string) (string, time.Time, error) {
	if storedName == "" {
		return "", time.Time{}, fmt.Errorf("stored name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(storedName))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{exp, encoded, s.mac(exp, encoded)}, "."), expiresAt, nil
}

// Verify checks the token signature and expiry and returns the stored name it covers.
func (s *SignedURLSigner) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrTokenFormat
	}
	exp, encoded, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.mac(exp, encoded)), []byte(signature)) {
		return "", ErrTokenSignature
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", ErrTokenFormat
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", ErrTokenExpired
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrTokenFormat
	}
	return string(raw), nil
}

func (s *SignedURLSigner) mac(exp, encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(exp + "|" + encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
