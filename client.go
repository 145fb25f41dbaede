package gcontacts

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// ContactsURL is the official contacts feed endpoint.
	ContactsURL = "https://www.google.com/"
	// TokenURL is the official OAuth2 token endpoint.
	TokenURL = "https://accounts.google.com/o/oauth2/token"

	modulePath = "thde.io/gcontacts"
)

var (
	// ErrStatus is returned when the API returns an unexpected status code.
	ErrStatus = errors.New("unexpected status code")
	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("malformed response payload")
	// ErrNoAccessToken is returned when no access token is available.
	ErrNoAccessToken = errors.New("no access token available")
	// ErrNoRefreshToken is returned when no refresh token is available.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRateLimit is returned when the rate limit is exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
)

// Config mirrors the credential set a client session is built from.
// Every field is optional.
type Config struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	Token          string `mapstructure:"token"`
	RefreshToken   string `mapstructure:"refresh_token"`
}

// Client holds the credentials and configuration needed to call the
// contacts feed API. Use [New] or [NewFromConfig] to create a new client.
type Client struct {
	baseURL  *url.URL
	tokenURL *url.URL

	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger

	auth *credentials

	retryAfterMU sync.Mutex
	retryAfter   time.Time
}

// credentials holds the session's secrets.
type credentials struct {
	sync.Mutex

	token          string
	refreshToken   string
	consumerKey    string
	consumerSecret string
}

// ClientOption configures a Client before use.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for feed requests.
func WithBaseURL(baseURL *url.URL) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTokenURL sets a custom OAuth2 token endpoint.
func WithTokenURL(tokenURL *url.URL) ClientOption {
	return func(c *Client) {
		c.tokenURL = tokenURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets a custom User-Agent header for API requests.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger used for request diagnostics.
// By default nothing is logged.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRefreshToken stores a refresh token on the client. It is used by
// [Client.TokenRefresh] when no refresh token is passed explicitly.
func WithRefreshToken(refreshToken string) ClientOption {
	return func(c *Client) {
		c.auth.refreshToken = refreshToken
	}
}

// WithConsumer sets the OAuth2 client id and secret used for token refreshes.
func WithConsumer(key, secret string) ClientOption {
	return func(c *Client) {
		c.auth.consumerKey = key
		c.auth.consumerSecret = secret
	}
}

// New creates a contacts API client authenticating with the given access
// token. The token may be empty if it is obtained later through
// [Client.TokenRefresh] and [Client.SetToken].
func New(token string, opts ...ClientOption) *Client {
	baseURL, _ := url.Parse(ContactsURL)
	tokenURL, _ := url.Parse(TokenURL)

	c := &Client{
		baseURL:  baseURL,
		tokenURL: tokenURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		auth: &credentials{
			token: token,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.userAgent == "" {
		c.userAgent = userAgent()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// NewFromConfig creates a client from a full credential set.
// Options are applied after the config.
func NewFromConfig(cfg Config, opts ...ClientOption) *Client {
	opts = append([]ClientOption{
		WithConsumer(cfg.ConsumerKey, cfg.ConsumerSecret),
		WithRefreshToken(cfg.RefreshToken),
	}, opts...)

	return New(cfg.Token, opts...)
}

// Token returns the current access token.
func (c *Client) Token() string {
	c.auth.Lock()
	defer c.auth.Unlock()

	return c.auth.token
}

// SetToken replaces the access token used for subsequent requests.
// Refreshing a token never updates the client on its own.
func (c *Client) SetToken(token string) {
	c.auth.Lock()
	defer c.auth.Unlock()

	c.auth.token = token
}

// version returns the module version of the gcontacts package.
// It returns "devel" if built without module version information.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			if dep.Version == "(devel)" {
				return "devel"
			}

			return dep.Version
		}
	}

	if info.Main.Path == modulePath {
		if info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return "devel+" + setting.Value[:7]
			}
		}
	}

	return "devel"
}

// Version reports the module version compiled into the binary.
func Version() string {
	return version()
}

// userAgent returns the default User-Agent string for this package.
func userAgent() string {
	return fmt.Sprintf("go-gcontacts/%s (%s; %s/%s)",
		version(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
