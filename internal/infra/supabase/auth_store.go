package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/finsight/finsight-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Identity store (implements port.AuthStore) ---

type supabaseUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *supabaseUser) toDomain() *domain.User {
	return &domain.User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// CreateUser inserts a user row and its credential row. Duplicate emails
// surface as ErrConflict via the unique constraint on users.email.
func (c *Client) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "supabase.CreateUser")
	defer span.End()

	body, err := c.doPost(ctx, "users", map[string]any{"email": email}, "")
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	var rows []supabaseUser
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert user: no row returned")
	}
	user := rows[0].toDomain()
	span.SetAttributes(attribute.String("user.id", user.ID))

	if _, err := c.doPost(ctx, "auth_credentials", map[string]any{
		"user_id":       user.ID,
		"password_hash": passwordHash,
	}, "return=minimal"); err != nil {
		return nil, fmt.Errorf("insert credentials: %w", err)
	}

	return user, nil
}

// GetUserByEmail returns nil when the email is unknown.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "supabase.GetUserByEmail")
	defer span.End()

	path := fmt.Sprintf("users?email=eq.%s&limit=1", url.QueryEscape(email))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeSingleUser(body)
}

// GetUserByID returns nil when the id is unknown.
func (c *Client) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "supabase.GetUserByID")
	defer span.End()

	path := fmt.Sprintf("users?id=eq.%s&limit=1", url.QueryEscape(userID))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeSingleUser(body)
}

func decodeSingleUser(body []byte) (*domain.User, error) {
	if body == nil {
		return nil, nil
	}
	var rows []supabaseUser
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

// GetCredentials fetches the stored password hash for a user.
func (c *Client) GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "supabase.GetCredentials")
	defer span.End()

	path := fmt.Sprintf("auth_credentials?user_id=eq.%s&limit=1", url.QueryEscape(userID))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}

	var rows []domain.AuthCredential
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return &rows[0], nil
}

// --- Refresh tokens ---

// StoreRefreshToken persists a hashed refresh token.
func (c *Client) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "supabase.StoreRefreshToken")
	defer span.End()

	_, err := c.doPost(ctx, "auth_refresh_tokens", map[string]any{
		"user_id":    userID,
		"token_hash": tokenHash,
		"expires_at": expiresAt.Format(time.RFC3339),
	}, "return=minimal")
	return err
}

// GetRefreshToken looks up a non-revoked refresh token by hash; nil when
// absent.
func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	ctx, span := tracer.Start(ctx, "supabase.GetRefreshToken")
	defer span.End()

	path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&revoked=eq.false&limit=1", url.QueryEscape(tokenHash))
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var rows []domain.AuthRefreshToken
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// RevokeRefreshToken marks one token revoked (rotation).
func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "supabase.RevokeRefreshToken")
	defer span.End()

	path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s", url.QueryEscape(tokenHash))
	return c.doPatch(ctx, path, map[string]any{"revoked": true})
}

// RevokeAllRefreshTokens revokes every token for a user (logout).
func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "supabase.RevokeAllRefreshTokens")
	defer span.End()

	path := fmt.Sprintf("auth_refresh_tokens?user_id=eq.%s", url.QueryEscape(userID))
	return c.doPatch(ctx, path, map[string]any{"revoked": true})
}
