package commands

import (
	"context"

	"github.com/spf13/cobra"

	"xhsmcp/config"
	"xhsmcp/eventbus"
	"xhsmcp/history"
	"xhsmcp/metrics"
	"xhsmcp/queue"
	"xhsmcp/scheduler"
	"xhsmcp/server"
	"xhsmcp/xiaohongshu"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and MCP endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "HTTP listen port")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := initSlog(cfg.SlogLevel())

	session, err := openBrowser(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	svc := xiaohongshu.NewService(session.Page(), logger)

	var (
		observers []queue.Observer
		opts      = server.Options{
			Logger:        logger,
			Version:       version,
			LoginTimeout:  cfg.Login.WaitTimeout,
			LoginInterval: cfg.Login.PollInterval,
		}
	)

	if cfg.Redis.Addr != "" {
		rdb, err := history.Connect(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn("history disabled", "err", err)
		} else {
			defer rdb.Close()
			hist := history.NewManager(rdb, cfg.Redis.Key, int(cfg.Redis.MaxEntries), logger)
			observers = append(observers, hist)
			opts.History = hist
			logger.Info("recording action history", "redis", cfg.Redis.Addr)
		}
	}

	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
		if err != nil {
			logger.Warn("event publishing disabled", "err", err)
		} else {
			defer bus.Close()
			observers = append(observers, eventbus.NewActionNotifier(bus, logger))
			logger.Info("publishing action events", "nats", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		}
	}

	var q *queue.Queue
	m := metrics.New(func() int { return q.Pending() })
	observers = append(observers, m)
	opts.Metrics = m

	q = queue.New(logger, observers...)
	q.Start()
	defer q.Close()

	if cfg.Login.ProbeCron != "" {
		probe, err := scheduler.NewLoginProbe(cfg.Login.ProbeCron, func(ctx context.Context) (*xiaohongshu.LoginStatus, error) {
			return queue.Run(ctx, q, "login_probe", nil, svc.CheckLoginStatus)
		}, logger)
		if err != nil {
			return err
		}
		probe.Start()
		defer probe.Stop()
		opts.LoginProbe = probe
	}

	srv := server.New(svc, q, opts)
	logger.Info("xhs-mcp ready", "addr", cfg.Addr(), "driver", cfg.Browser.Driver, "headless", cfg.Browser.Headless)
	return srv.ListenAndServe(ctx, cfg.Addr())
}
