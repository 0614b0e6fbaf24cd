package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
	"golang.org/x/sync/singleflight"
)

type ServerConfig struct {
	Role      string        `envconfig:"ROLE" default:"data"`
	Host      string        `envconfig:"HOST" default:"0.0.0.0"`
	Port      int           `envconfig:"PORT"`
	PublicURL string        `split_words:"true"`
	ReplayTTL time.Duration `split_words:"true" default:"24h"`
}

// DefaultPort is the port a role listens on when none is configured.
func DefaultPort(role contractx.Role) int {
	if role == contractx.RoleAction {
		return 8002
	}
	return 8001
}

func (c ServerConfig) Addr(role contractx.Role) string {
	port := c.Port
	if port == 0 {
		port = DefaultPort(role)
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

type ServerOption func(*Server)

func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// Server exposes one specialist over HTTP.
type Server struct {
	facade Facade
	card   AgentCard
	replay statex.ReplayStore
	group  singleflight.Group
	logger zerolog.Logger
	engine *gin.Engine
}

func NewServer(facade Facade, card AgentCard, replay statex.ReplayStore, opts ...ServerOption) *Server {
	if replay == nil {
		replay = statex.NewMemoryReplayStore(0)
	}
	s := &Server{
		facade: facade,
		card:   card,
		replay: replay,
		logger: logx.Component("transport").With().Str("role", string(facade.Role())).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "role": s.facade.Role()})
	})
	r.GET(AgentCardPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, s.card)
	})
	r.POST(InvokePath, s.invoke)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("card", s.card.URL+AgentCardPath).Msg("specialist listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) invoke(c *gin.Context) {
	var req contractx.SpecialistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "kind": contractx.KindValidation})
		return
	}

	key := c.GetHeader(IdempotencyHeader)
	if key == "" {
		key = req.RequestID
	}
	if key == "" {
		reply := s.handle(c.Request.Context(), req)
		c.Data(reply.Status, "application/json", reply.Body)
		return
	}

	ctx := c.Request.Context()
	if reply, ok, err := s.replay.Get(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("request_id", key).Msg("replay lookup failed")
	} else if ok {
		c.Header(ReplayedHeader, "true")
		c.Data(reply.Status, "application/json", reply.Body)
		return
	}

	v, _, shared := s.group.Do(key, func() (any, error) {
		reply := s.handle(ctx, req)
		if err := s.replay.Put(ctx, key, reply); err != nil {
			s.logger.Warn().Err(err).Str("request_id", key).Msg("replay store failed")
		}
		return reply, nil
	})
	reply := v.(*statex.Reply)
	if shared {
		c.Header(ReplayedHeader, "true")
	}
	c.Data(reply.Status, "application/json", reply.Body)
}

func (s *Server) handle(ctx context.Context, req contractx.SpecialistRequest) *statex.Reply {
	if req.Role == "" {
		req.Role = s.facade.Role()
	}

	status := http.StatusOK
	resp, err := s.facade.Invoke(ctx, req)
	if err != nil {
		resp.RequestID = req.RequestID
		resp.Role = s.facade.Role()
		resp.OK = false
		resp.Summary = err.Error()
		resp.Fault = contractx.FaultFrom(err)
		status = http.StatusUnprocessableEntity
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(resp); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
		return &statex.Reply{
			Status: http.StatusInternalServerError,
			Body:   []byte(`{"ok":false,"fault":{"kind":"internal","message":"encode response"}}`),
		}
	}
	return &statex.Reply{Status: status, Body: buf.Bytes()}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}
