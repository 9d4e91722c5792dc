package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"medibook/utils"
)

// ErrInvalidToken is returned for missing, malformed or expired bearer tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Provider resolves a bearer token to the id of the calling user.
type Provider interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type userIDKey struct{}

// WithUserID attaches the authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// FirebaseProvider verifies Firebase ID tokens; the user id is the Firebase UID.
type FirebaseProvider struct {
	client *auth.Client
}

func NewFirebaseProvider(ctx context.Context, app *firebase.App) (*FirebaseProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Auth client: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

func (p *FirebaseProvider) VerifyToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	decoded, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return decoded.UID, nil
}

// JWTProvider verifies HS256 tokens signed with a shared secret; the user id is "sub".
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

func (p *JWTProvider) VerifyToken(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	id, err := utils.ExtractIDFromToken(p.secret, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return id, nil
}

// Issue signs a token for userID; used by local tooling and tests.
func (p *JWTProvider) Issue(userID string, ttl time.Duration) (string, error) {
	return utils.GenerateToken(p.secret, userID, "", ttl)
}
