package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
	transportx "github.com/tanpawarit/Chative-Support-Router/agent/transport"
	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
)

var (
	serveRole string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one specialist (data or action) over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveRole, "role", "", "specialist role: data or action (default $SPECIALIST_ROLE)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default 8001 for data, 8002 for action)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := configx.New[transportx.ServerConfig]("SPECIALIST")
	if err != nil {
		return err
	}
	if serveRole != "" {
		cfg.Role = serveRole
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	role := contractx.Role(cfg.Role)
	if !role.Valid() {
		return fmt.Errorf("%w: role must be data or action, got %q", contractx.ErrValidation, cfg.Role)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	facade, err := newFacade(role, store)
	if err != nil {
		return err
	}

	replay, closeReplay, err := newReplayStore(ctx, *cfg)
	if err != nil {
		return err
	}
	defer closeReplay()

	addr := cfg.Addr(role)
	url := cfg.PublicURL
	if url == "" {
		port := cfg.Port
		if port == 0 {
			port = transportx.DefaultPort(role)
		}
		url = "http://localhost:" + strconv.Itoa(port)
	}

	srv := transportx.NewServer(facade, transportx.CardFor(facade, url), replay,
		transportx.WithServerLogger(logx.Component("transport").With().Str("role", string(role)).Logger()))
	return srv.Run(ctx, addr)
}

// newReplayStore prefers redis, then Upstash REST, then process memory.
func newReplayStore(ctx context.Context, cfg transportx.ServerConfig) (statex.ReplayStore, func(), error) {
	logger := logx.Component("replay")

	redisCfg, err := configx.New[statex.RedisConfig]("REDIS")
	if err != nil {
		return nil, nil, err
	}
	if redisCfg.Enabled() {
		rs, err := statex.NewRedisReplayStore(ctx, *redisCfg, cfg.ReplayTTL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("addr", redisCfg.Addr).Msg("using redis replay store")
		return rs, func() { _ = rs.Close() }, nil
	}

	upstashCfg, err := configx.New[statex.UpstashConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, nil, err
	}
	if upstashCfg.Enabled() {
		us, err := statex.NewUpstashReplayStore(*upstashCfg, statex.WithTTL(cfg.ReplayTTL))
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("using upstash replay store")
		return us, func() {}, nil
	}

	logger.Info().Msg("using in-memory replay store")
	return statex.NewMemoryReplayStore(cfg.ReplayTTL), func() {}, nil
}
