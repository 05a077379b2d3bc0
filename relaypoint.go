package relaypoint

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/relaypoint/relaypoint.go/pkg/bindings"
	"github.com/relaypoint/relaypoint.go/pkg/connection"
	"github.com/relaypoint/relaypoint.go/pkg/logger"
	"github.com/relaypoint/relaypoint.go/pkg/models"
	"github.com/relaypoint/relaypoint.go/pkg/optimistic"
	"github.com/relaypoint/relaypoint.go/pkg/session"
)

// Client is the Relaypoint client facade. It owns one connection, the fetch
// sequencer, the side-effect dispatcher, and one binding per entity type,
// all sharing the active authentication and tenant scope.
type Client struct {
	conn    connection.Connection
	seq     *optimistic.Sequencer
	effects *optimistic.Dispatcher
	session *session.Cache
	log     zerolog.Logger

	Tasks      *bindings.Tasks
	Comments   *bindings.Comments
	Meetings   *bindings.Meetings
	Proposals  *bindings.Proposals
	Milestones *bindings.Milestones
	Reviews    *bindings.Reviews
}

// Option customizes client construction.
type Option func(*config)

type config struct {
	log        *zerolog.Logger
	httpClient *http.Client
	wsURL      string
	conn       connection.Connection
}

// WithLogger installs the logger used by the connection, the effect
// dispatcher, and the bindings.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = &log }
}

// WithHTTPClient overrides the underlying HTTP client, for custom transports
// or timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithWebsocket routes named procedures over the realtime websocket endpoint
// instead of POST /rpc. Entity fetches and plain mutations stay on HTTP.
func WithWebsocket(url string) Option {
	return func(c *config) { c.wsURL = url }
}

// WithConnection swaps in a prebuilt connection, bypassing the URL entirely.
// Intended for in-process fakes in tests.
func WithConnection(conn connection.Connection) Option {
	return func(c *config) { c.conn = conn }
}

// New builds a client against the service at baseURL. The returned client is
// unauthenticated and unscoped; call [Client.Authenticate] and [Client.Use]
// before loading entities.
func New(baseURL string, opts ...Option) (*Client, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var log zerolog.Logger
	if cfg.log != nil {
		log = *cfg.log
	} else {
		var err error
		log, err = logger.New().Make()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	conn := cfg.conn
	if conn == nil {
		httpOpts := []connection.HTTPOption{connection.WithHTTPLogger(log)}
		if cfg.httpClient != nil {
			httpOpts = append(httpOpts, connection.WithHTTPClient(cfg.httpClient))
		}
		h := connection.NewHTTP(baseURL, httpOpts...)
		if cfg.wsURL != "" {
			ws, err := connection.NewWS(cfg.wsURL, connection.WithWSLogger(log))
			if err != nil {
				return nil, fmt.Errorf("dial websocket: %w", err)
			}
			conn = &connection.Combined{HTTP: h, WS: ws}
		} else {
			conn = h
		}
	}

	c := &Client{
		conn:    conn,
		seq:     optimistic.NewSequencer(),
		effects: optimistic.NewDispatcher(log),
		log:     log,
	}
	c.session = session.NewCache(func(ctx context.Context) (models.User, error) {
		var u models.User
		err := conn.Fetch(ctx, "/me", nil, &u)
		return u, err
	})

	deps := bindings.Deps{
		Conn:    conn,
		Seq:     c.seq,
		Effects: c.effects,
		Session: c.session,
		Log:     log,
	}
	c.Tasks = bindings.NewTasks(deps)
	c.Comments = bindings.NewComments(deps, c.Tasks)
	c.Meetings = bindings.NewMeetings(deps)
	c.Proposals = bindings.NewProposals(deps, c.Meetings)
	c.Milestones = bindings.NewMilestones(deps)
	c.Reviews = bindings.NewReviews(deps, c.Tasks)
	return c, nil
}

// Authenticate installs the bearer token for subsequent calls and drops the
// cached current user. An empty token signs out.
func (c *Client) Authenticate(token string) {
	c.conn.SetToken(token)
	c.session.Invalidate()
}

// Use switches the client to a tenant scope. Every binding is rescoped:
// local state is cleared and in-flight fetches for the previous scope are
// permanently disposed, so none of their responses can land in the new one.
func (c *Client) Use(org models.OrgID, space models.SpaceID) {
	scope := models.Scope{Org: org, Space: space}
	c.conn.UseScope(scope)
	c.Tasks.Rescope(scope)
	c.Meetings.Rescope(scope)
	c.Milestones.Rescope(scope)
	c.Reviews.Rescope(scope)
}

// Invalidate drops the cached current user without changing the token, for
// callers that know the account changed server-side.
func (c *Client) Invalidate() {
	c.session.Invalidate()
}

// Me returns the current authenticated user, cached per session.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	return c.session.Current(ctx)
}

// Close drains in-flight side effects and closes the connection.
func (c *Client) Close() error {
	c.effects.Close()
	return c.conn.Close()
}
