package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/platform/config"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

const (
	// SyncServiceName names the remote in errors, logs and health output.
	SyncServiceName = "sync-remote"

	postsPath       = "/posts"
	healthCheckPath = "/posts/1"
)

// SyncClientConfig configures the sync remote adapter.
type SyncClientConfig struct {
	// Client must have its BaseURL pointed at the REST mock.
	Client *clients.Client

	// Mode is config.SyncModeStandIn or config.SyncModePosts.
	Mode string

	// PostLimit caps mapped posts in posts mode.
	PostLimit int

	// PostCategory is assigned to every mapped post.
	PostCategory string

	Logger *slog.Logger
}

// SyncClient implements ports.SyncRemote and ports.HealthChecker against a
// jsonplaceholder-style /posts endpoint.
type SyncClient struct {
	BaseAdapter

	mode         string
	postLimit    int
	postCategory string
	logger       *slog.Logger
}

// post is the remote's record shape.
type post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// createdPost is the echo returned for a POST.
type createdPost struct {
	ID int `json:"id"`
}

// NewSyncClient creates the adapter. Panics if Client is nil.
func NewSyncClient(cfg SyncClientConfig) *SyncClient {
	if cfg.Client == nil {
		panic("SyncClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mode := cfg.Mode
	if mode == "" {
		mode = config.SyncModeStandIn
	}

	limit := cfg.PostLimit
	if limit <= 0 {
		limit = config.DefaultSyncPostLimit
	}

	return &SyncClient{
		BaseAdapter:  NewBaseAdapter(cfg.Client, SyncServiceName),
		mode:         mode,
		postLimit:    limit,
		postCategory: cfg.PostCategory,
		logger:       logger.With(slog.String("component", "acl.SyncClient")),
	}
}

// FetchServerQuotes fetches /posts. In stand-in mode the payload only proves
// the remote is reachable and the fixed server quotes are returned; in posts
// mode the first PostLimit titles become quotes.
func (c *SyncClient) FetchServerQuotes(ctx context.Context) ([]domain.Quote, error) {
	c.logger.Log(ctx, logging.LevelTrace, "fetching server quotes", slog.String("mode", c.mode))

	body, err := c.Get(ctx, postsPath, "fetch posts")
	if err != nil {
		return nil, err
	}

	posts, err := DecodeResponse[[]post](body)
	if err != nil {
		return nil, domain.NewUnavailableError(c.ServiceName(), err.Error())
	}

	c.logger.Log(ctx, logging.LevelTrace, "posts received", slog.Int("count", len(*posts)))

	if c.mode != config.SyncModePosts {
		return domain.StandInServerQuotes(), nil
	}

	items := *posts
	if len(items) > c.postLimit {
		items = items[:c.postLimit]
	}

	quotes, err := TranslateSlice(items, c.translatePost)
	if err != nil {
		return nil, domain.NewUnavailableError(c.ServiceName(), err.Error())
	}

	return quotes, nil
}

// PostQuote sends q to /posts. Only the echoed id is read from the reply.
func (c *SyncClient) PostQuote(ctx context.Context, q domain.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding quote: %w", err)
	}

	body, err := c.Post(ctx, postsPath, payload, "post quote")
	if err != nil {
		return err
	}

	created, err := DecodeResponse[createdPost](body)
	if err != nil {
		c.logger.DebugContext(ctx, "post echo not decodable", slog.Any("error", err))

		return nil
	}

	c.logger.DebugContext(ctx, "quote posted to server", slog.Int("remote_id", created.ID))

	return nil
}

// Name implements ports.HealthChecker.
func (c *SyncClient) Name() string {
	return SyncServiceName
}

// Check implements ports.HealthChecker with a single-post GET.
func (c *SyncClient) Check(ctx context.Context) error {
	body, err := c.Get(ctx, healthCheckPath, "health check")
	if err != nil {
		return err
	}

	clients.DrainAndClose(body)

	return nil
}

func (c *SyncClient) translatePost(p *post) (domain.Quote, error) {
	q, err := domain.NewQuote(p.Title, c.postCategory)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("post %d: %w", p.ID, err)
	}

	return q, nil
}
