package googleapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"north-backend/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// ErrNoIDToken is returned when the token exchange response carries no
// id_token, which happens when the openid scope was not granted.
var ErrNoIDToken = errors.New("token response missing id_token")

// Identity is the subset of the verified ID-token claims the backend uses.
type Identity struct {
	Email      string
	GivenName  string
	FamilyName string
}

// Client wraps the Google OAuth flow and per-user Drive service
// construction around one OAuth application.
type Client struct {
	oauth *oauth2.Config
}

func NewClient(cfg *config.GoogleConfig) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL builds the consent-screen URL for the given state. Offline
// access and the consent prompt are forced so a refresh token is returned
// on every authorization, matching how accounts were linked historically.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the authorization code for tokens and verifies the ID
// token against this application's client id.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, *Identity, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, nil, ErrNoIDToken
	}

	payload, err := idtoken.Validate(ctx, rawIDToken, c.oauth.ClientID)
	if err != nil {
		return nil, nil, fmt.Errorf("id token verification failed: %w", err)
	}

	identity := &Identity{
		Email:      claimString(payload.Claims, "email"),
		GivenName:  claimString(payload.Claims, "given_name"),
		FamilyName: claimString(payload.Claims, "family_name"),
	}
	if identity.Email == "" {
		return nil, nil, errors.New("id token missing email claim")
	}
	return token, identity, nil
}

// Drive builds a Drive service acting as the user owning the stored
// token. The token source refreshes expired access tokens transparently.
func (c *Client) Drive(ctx context.Context, accessToken, refreshToken string, expiry time.Time) (*drive.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       expiry,
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(c.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to build drive service: %w", err)
	}
	return svc, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
