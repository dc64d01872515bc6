package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	drive "google.golang.org/api/drive/v2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/robertlancer/supershare/internal/instrumentation"
	"github.com/robertlancer/supershare/internal/logging"
)

// requestTimeout is the fixed connect and read timeout applied to every
// outgoing request made through a client.
const requestTimeout = 3 * time.Minute

// ServiceKind identifies which Google API surface a client is built for.
type ServiceKind string

// Supported API surfaces. Only Drive is exercised by the viewer flow.
const (
	KindDrive ServiceKind = "drive"
	KindGmail ServiceKind = "gmail"
)

// ErrNoKey is returned when client construction is attempted without a
// loaded service account key.
var ErrNoKey = errors.New("no service account key loaded")

// ClientError wraps a failure from the credential layer with the account
// that was being impersonated.
type ClientError struct {
	Account string
	Err     error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("google client error for %s: %v", logging.AnonymizeEmail(e.Account), e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// clientKey is the cache key for one authenticated client.
type clientKey struct {
	account string
	kind    ServiceKind
}

// Client is an authenticated API client impersonating a single account.
// It owns its credential and transport configuration and lives for the
// lifetime of the process; it is never invalidated or recreated, even if
// the credential becomes permanently unusable.
type Client struct {
	account string
	kind    ServiceKind
	source  oauth2.TokenSource

	drive *drive.Service
	gmail *gmail.Service

	metrics *instrumentation.Metrics

	mu    sync.Mutex
	token *oauth2.Token
}

// Account returns the impersonated account this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// Kind returns the API surface this client was built for.
func (c *Client) Kind() ServiceKind {
	return c.kind
}

// Drive returns the Drive service. Nil unless the client was built with KindDrive.
func (c *Client) Drive() *drive.Service {
	return c.drive
}

// Gmail returns the Gmail service. Nil unless the client was built with KindGmail.
func (c *Client) Gmail() *gmail.Service {
	return c.gmail
}

// AccessToken returns the client's current access token, refreshing it
// synchronously when it is absent or its expiry is at or before now.
// A refresh failure is returned as a ClientError carrying the cause.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.AccessToken != "" && c.token.Expiry.After(time.Now()) {
		c.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultCached)
		return c.token.AccessToken, nil
	}

	// Blocking network round-trip on the calling goroutine.
	token, err := c.source.Token()
	if err != nil {
		c.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		return "", &ClientError{Account: c.account, Err: err}
	}

	c.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
	c.token = token
	return token.AccessToken, nil
}

// Factory produces ready-to-use, authenticated clients for Google APIs,
// impersonating a specified account. It owns the process-wide client cache.
type Factory struct {
	keys    *KeyParts // nil when the startup key load failed
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu      sync.RWMutex
	clients map[clientKey]*Client

	// buildClient is overridable in tests
	buildClient func(ctx context.Context, account string, kind ServiceKind) (*Client, error)
}

// NewFactory creates a client factory for the given service account key.
// keys may be nil when the startup key load failed; every client construction
// will then fail with ErrNoKey, matching a process running without a usable key.
func NewFactory(keys *KeyParts, logger *slog.Logger, metrics *instrumentation.Metrics) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	f := &Factory{
		keys:    keys,
		logger:  logging.WithService(logger, "google"),
		metrics: metrics,
		clients: make(map[clientKey]*Client),
	}
	f.buildClient = f.newClient
	return f
}

// HasKey reports whether a service account key was loaded at startup.
func (f *Factory) HasKey() bool {
	return f.keys != nil
}

// ClientFor returns the cached client for (account, kind), constructing and
// caching a new one on first use. A cached client is returned unchanged even
// if its token has since expired; there is no proactive invalidation.
//
// Concurrent first-time lookups for the same key may both construct a client;
// the last writer overwrites the cache slot with an equivalent object, so the
// cache ends with exactly one entry per key.
func (f *Factory) ClientFor(ctx context.Context, account string, kind ServiceKind) (*Client, error) {
	key := clientKey{account: account, kind: kind}

	f.mu.RLock()
	client := f.clients[key]
	f.mu.RUnlock()

	if client != nil {
		return client, nil
	}

	client, err := f.buildClient(ctx, account, kind)
	if err != nil {
		f.logger.Error("failed to construct client",
			logging.Service(string(kind)),
			logging.UserHash(account),
			logging.Err(err))
		return nil, err
	}

	f.mu.Lock()
	f.clients[key] = client
	f.mu.Unlock()

	return client, nil
}

// newClient constructs an authenticated client for the given account and kind.
func (f *Factory) newClient(ctx context.Context, account string, kind ServiceKind) (*Client, error) {
	if f.keys == nil {
		return nil, &ClientError{Account: account, Err: ErrNoKey}
	}

	// The credential is always scoped to read-only Drive access, regardless
	// of the API surface requested.
	conf := &jwt.Config{
		Email:      f.keys.EmailAddress,
		PrivateKey: f.keys.PEM,
		Scopes:     []string{drive.DriveReadonlyScope},
		Subject:    account,
		TokenURL:   googleauth.JWTTokenURL,
	}

	// Fixed connect/read timeouts on every outgoing request; HTTP/1.1 to
	// avoid HTTP/2 protocol errors with long-lived Google API connections.
	base := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: requestTimeout,
			}).DialContext,
			ResponseHeaderTimeout: requestTimeout,
			ForceAttemptHTTP2:     false,
		},
	}
	clientCtx := context.WithValue(ctx, oauth2.HTTPClient, base)

	source := conf.TokenSource(clientCtx)
	httpClient := oauth2.NewClient(clientCtx, source)

	client := &Client{
		account: account,
		kind:    kind,
		source:  source,
		metrics: f.metrics,
	}

	var err error
	switch kind {
	case KindDrive:
		client.drive, err = drive.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, &ClientError{Account: account, Err: fmt.Errorf("failed to create Drive service: %w", err)}
		}
	case KindGmail:
		client.gmail, err = gmail.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, &ClientError{Account: account, Err: fmt.Errorf("failed to create Gmail service: %w", err)}
		}
	default:
		return nil, &ClientError{Account: account, Err: fmt.Errorf("unsupported service kind %q", kind)}
	}

	return client, nil
}
