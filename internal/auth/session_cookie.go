package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
)

// signedPrefix marks a cookie value produced by the HTTP layer's session
// middleware.
const signedPrefix = "s:"

// CookieSigner verifies session cookies signed as "s:<sid>.<sig>" where sig
// is the unpadded base64 HMAC-SHA256 of sid. The first secret signs; every
// secret verifies so secrets can be rotated.
type CookieSigner struct {
	secrets [][]byte
}

// NewCookieSigner creates a signer. At least one non-empty secret is required.
func NewCookieSigner(secrets ...string) (*CookieSigner, error) {
	s := &CookieSigner{}
	for _, secret := range secrets {
		if secret != "" {
			s.secrets = append(s.secrets, []byte(secret))
		}
	}
	if len(s.secrets) == 0 {
		return nil, errors.New("at least one session secret is required")
	}
	return s, nil
}

// Sign returns the signed, unescaped cookie value for a session id.
func (s *CookieSigner) Sign(sessionID string) string {
	return signedPrefix + sessionID + "." + signature(s.secrets[0], sessionID)
}

// Unsign verifies an unescaped cookie value and returns the session id.
func (s *CookieSigner) Unsign(value string) (string, error) {
	if !strings.HasPrefix(value, signedPrefix) {
		return "", fmt.Errorf("%w: missing signed prefix", apperrors.ErrCookieBadSignature)
	}
	value = value[len(signedPrefix):]

	dot := strings.LastIndexByte(value, '.')
	if dot <= 0 {
		return "", fmt.Errorf("%w: missing signature", apperrors.ErrCookieBadSignature)
	}
	sessionID, sig := value[:dot], value[dot+1:]

	for _, secret := range s.secrets {
		if hmac.Equal([]byte(sig), []byte(signature(secret, sessionID))) {
			return sessionID, nil
		}
	}
	return "", apperrors.ErrCookieBadSignature
}

// SessionIDFromHeader extracts the named cookie from a raw Cookie header,
// URL-decodes it and verifies its signature.
func (s *CookieSigner) SessionIDFromHeader(cookieHeader, name string) (string, error) {
	if cookieHeader == "" {
		return "", apperrors.ErrCookieMissing
	}

	req := http.Request{Header: http.Header{"Cookie": []string{cookieHeader}}}
	cookie, err := req.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrCookieMissing
	}

	raw, err := url.PathUnescape(cookie.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrCookieBadSignature, err)
	}

	return s.Unsign(raw)
}

// EncodeCookieValue escapes a signed value the way the HTTP layer writes it.
func EncodeCookieValue(signed string) string {
	return url.QueryEscape(signed)
}

func signature(secret []byte, value string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}
