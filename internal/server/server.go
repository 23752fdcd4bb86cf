// Package server exposes the HTTP surface: the chat relay, the
// favorites API and the tool proxies.
package server

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"toolhub/internal/favorites"
	"toolhub/internal/favorites/kv"
	"toolhub/internal/gateway"
	"toolhub/internal/hackernews"
	"toolhub/internal/wallhaven"
)

var namespacePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ChunkReader is the receive side of one streaming completion.
type ChunkReader interface {
	Recv() (gateway.StreamChunk, error)
	Close() error
}

// Gateway is the chat backend the relay forwards to.
type Gateway interface {
	Configured() bool
	Chat(ctx context.Context, req gateway.ChatRequest) (gateway.ChatResponse, error)
	ChatStream(ctx context.Context, req gateway.ChatRequest, opts *gateway.StreamOptions) (ChunkReader, error)
	HealthCheck(ctx context.Context) bool
}

type clientAdapter struct {
	*gateway.Client
}

func (a clientAdapter) ChatStream(ctx context.Context, req gateway.ChatRequest, opts *gateway.StreamOptions) (ChunkReader, error) {
	s, err := a.Client.ChatStream(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WrapClient adapts the concrete gateway client to the Gateway port.
func WrapClient(c *gateway.Client) Gateway {
	return clientAdapter{c}
}

// Limiter gates chat requests per client. A nil Limiter disables the
// check entirely.
type Limiter interface {
	Allow(ctx context.Context, client string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error)
}

type Config struct {
	Service string
}

type Server struct {
	cfg       Config
	engine    *gin.Engine
	logger    zerolog.Logger
	gw        Gateway
	limiter   Limiter
	hn        *hackernews.Client
	wallhaven *wallhaven.Client

	backend kv.Store
	favOpts []favorites.Option
	favMu   sync.Mutex
	favByNS map[string]*favorites.Store
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func WithLimiter(l Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

func WithHackerNews(c *hackernews.Client) Option {
	return func(s *Server) { s.hn = c }
}

func WithWallhaven(c *wallhaven.Client) Option {
	return func(s *Server) { s.wallhaven = c }
}

// WithFavoritesOptions forwards store options (publisher, clock) to
// every per-namespace favorites store the server creates.
func WithFavoritesOptions(opts ...favorites.Option) Option {
	return func(s *Server) { s.favOpts = opts }
}

func New(cfg Config, gw Gateway, backend kv.Store, opts ...Option) *Server {
	if cfg.Service == "" {
		cfg.Service = "toolhub"
	}
	s := &Server{
		cfg:     cfg,
		gw:      gw,
		backend: backend,
		logger:  zerolog.Nop(),
		favByNS: make(map[string]*favorites.Store),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.buildRouter()
	return s
}

// Handler returns the routed HTTP handler for mounting on a server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.requestLog(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/chat", s.handleChat)

	fav := api.Group("/favorites/:ns")
	fav.GET("/collections", s.handleListCollections)
	fav.POST("/collections", s.handleCreateCollection)
	fav.PATCH("/collections/:id", s.handleUpdateCollection)
	fav.DELETE("/collections/:id", s.handleDeleteCollection)
	fav.GET("/collections/:id/items", s.handleListItems)
	fav.POST("/collections/:id/items", s.handleAddItem)
	fav.GET("/collections/:id/contains", s.handleContains)
	fav.DELETE("/items/:id", s.handleRemoveItem)

	if s.hn != nil {
		api.GET("/hackernews/daily", s.handleHackerNewsDaily)
	}
	if s.wallhaven != nil {
		api.GET("/wallhaven/search", s.handleWallhavenSearch)
		api.GET("/wallhaven/w/:id", s.handleWallhavenDetail)
	}

	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// favoritesStore lazily builds one store per namespace so the
// read-through cache survives across requests.
func (s *Server) favoritesStore(ns string) (*favorites.Store, bool) {
	if !namespacePattern.MatchString(ns) {
		return nil, false
	}
	s.favMu.Lock()
	defer s.favMu.Unlock()
	if st, ok := s.favByNS[ns]; ok {
		return st, true
	}
	opts := append([]favorites.Option{favorites.WithLogger(s.logger)}, s.favOpts...)
	st := favorites.NewStore(s.backend, ns, opts...)
	s.favByNS[ns] = st
	return st, true
}
