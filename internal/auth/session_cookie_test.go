package auth

import (
	"testing"

	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const knownCookie = "s%3Aabc123.L3URH8qEUlRhbJErOXuJ%2FR5i21GJUY02kERb2c2p5w0"

func TestCookieSigner_SignMatchesHTTPLayerFormat(t *testing.T) {
	signer, err := NewCookieSigner("keyboard cat")
	require.NoError(t, err)

	signed := signer.Sign("abc123")
	assert.Equal(t, "s:abc123.L3URH8qEUlRhbJErOXuJ/R5i21GJUY02kERb2c2p5w0", signed)
	assert.Equal(t, knownCookie, EncodeCookieValue(signed))
}

func TestCookieSigner_SessionIDFromHeader(t *testing.T) {
	signer, err := NewCookieSigner("keyboard cat")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantID  string
		wantErr error
	}{
		{
			name:   "valid cookie among others",
			header: "theme=dark; connect.sid=" + knownCookie + "; other=1",
			wantID: "abc123",
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: apperrors.ErrCookieMissing,
		},
		{
			name:    "cookie absent",
			header:  "theme=dark",
			wantErr: apperrors.ErrCookieMissing,
		},
		{
			name:    "unsigned value",
			header:  "connect.sid=abc123",
			wantErr: apperrors.ErrCookieBadSignature,
		},
		{
			name:    "tampered session id",
			header:  "connect.sid=s%3Aabc124.L3URH8qEUlRhbJErOXuJ%2FR5i21GJUY02kERb2c2p5w0",
			wantErr: apperrors.ErrCookieBadSignature,
		},
		{
			name:    "missing signature",
			header:  "connect.sid=s%3Aabc123",
			wantErr: apperrors.ErrCookieBadSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := signer.SessionIDFromHeader(tt.header, "connect.sid")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestCookieSigner_VerifiesRotatedSecrets(t *testing.T) {
	old, err := NewCookieSigner("old-secret")
	require.NoError(t, err)
	signed := old.Sign("sess-1")

	rotated, err := NewCookieSigner("new-secret", "old-secret")
	require.NoError(t, err)

	id, err := rotated.Unsign(signed)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	other, err := NewCookieSigner("new-secret")
	require.NoError(t, err)
	_, err = other.Unsign(signed)
	assert.ErrorIs(t, err, apperrors.ErrCookieBadSignature)
}

func TestCookieSigner_SessionIDWithDots(t *testing.T) {
	signer, err := NewCookieSigner("s3cret")
	require.NoError(t, err)

	id, err := signer.Unsign(signer.Sign("a.b.c"))
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", id)
}

func TestNewCookieSigner_RequiresSecret(t *testing.T) {
	_, err := NewCookieSigner()
	assert.Error(t, err)

	_, err = NewCookieSigner("", "")
	assert.Error(t, err)
}
