package gcontacts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNoIDToken is returned by [Token.IDClaims] when the token endpoint did
// not issue an ID token.
var ErrNoIDToken = errors.New("no id token available")

// grantTypeRefresh is the OAuth2 grant used to exchange a refresh token.
const grantTypeRefresh = "refresh_token"

// Token is the response of the OAuth2 token endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	// IDToken is only issued if the grant included the openid scope.
	IDToken string `json:"id_token,omitempty"`

	// Expiry is derived from ExpiresIn when the response is received.
	Expiry time.Time `json:"-"`
}

// IDClaims are the claims of an OpenID Connect ID token.
type IDClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IDClaims decodes the claims of the ID token without verifying its
// signature. Use it for display only, never to make trust decisions.
func (t *Token) IDClaims() (*IDClaims, error) {
	if t.IDToken == "" {
		return nil, ErrNoIDToken
	}

	var claims IDClaims
	if _, _, err := jwt.NewParser().ParseUnverified(t.IDToken, &claims); err != nil {
		return nil, fmt.Errorf("unable to parse id token: %w", err)
	}

	return &claims, nil
}

// OAuth2 converts the token for use with [golang.org/x/oauth2].
func (t *Token) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
	if t.IDToken != "" {
		tok = tok.WithExtra(map[string]any{"id_token": t.IDToken})
	}

	return tok
}

// TokenRefresh exchanges a refresh token for a new access token. If
// refreshToken is empty, the one configured with [WithRefreshToken] is used.
// The client's own access token is left untouched; call [Client.SetToken]
// to start using the new one. A response without an access_token is
// reported as [ErrDecode].
func (c *Client) TokenRefresh(ctx context.Context, refreshToken string) (*Token, error) {
	c.auth.Lock()
	if refreshToken == "" {
		refreshToken = c.auth.refreshToken
	}
	form := url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {c.auth.consumerKey},
		"client_secret": {c.auth.consumerSecret},
		"grant_type":    {grantTypeRefresh},
	}
	c.auth.Unlock()

	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	body := form.Encode()

	req, err := c.newRequest(ctx, http.MethodPost, c.tokenURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ContentLength = int64(len(body))

	var token Token
	if err := c.doJSON(req, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("response has no access_token: %w", ErrDecode)
	}
	if token.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	c.logger.Debug("refreshed access token",
		zap.String("token_type", token.TokenType),
		zap.Int("expires_in", token.ExpiresIn),
	)

	return &token, nil
}

// RefreshAccessToken exchanges a refresh token and returns only the new
// access token. It never returns an empty token without an error; a
// response lacking access_token fails with [ErrDecode].
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	token, err := c.TokenRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// refreshTokenSource is an [oauth2.TokenSource] running a refresh on every
// call.
type refreshTokenSource struct {
	ctx          context.Context
	client       *Client
	refreshToken string
}

// Token implements the [oauth2.TokenSource] interface.
func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.client.TokenRefresh(s.ctx, s.refreshToken)
	if err != nil {
		return nil, err
	}

	return token.OAuth2(), nil
}

// TokenSource returns an [oauth2.TokenSource] backed by [Client.TokenRefresh].
// Every call performs a refresh; wrap it with [oauth2.ReuseTokenSource] to
// cache tokens until they expire.
func (c *Client) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return &refreshTokenSource{ctx: ctx, client: c, refreshToken: refreshToken}
}
