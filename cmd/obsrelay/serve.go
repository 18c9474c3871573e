package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsremote/obsrelay/internal/api"
	"github.com/obsremote/obsrelay/internal/auth"
	"github.com/obsremote/obsrelay/internal/config"
	"github.com/obsremote/obsrelay/internal/eventlog"
	"github.com/obsremote/obsrelay/internal/metrics"
	"github.com/obsremote/obsrelay/internal/receiver"
	"github.com/obsremote/obsrelay/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the multi-role hub (WebSocket, REST trigger, event log)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.HTTPPort, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("grpc-port") {
			cfg.Server.GRPCPort, _ = cmd.Flags().GetInt("grpc-port")
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().Int("port", config.DefaultHTTPPort, "HTTP/WebSocket port (overrides PORT and server.http_port)")
	serveCmd.Flags().Int("grpc-port", 0, "gRPC ingest port, 0 disables (overrides server.grpc_port)")
}

func hubOptions(h config.HubConfig) ws.Options {
	return ws.Options{
		IncludeSender: h.IncludeSender,
		MaxFrameBytes: h.MaxFrameBytes,
		RoleMaxLen:    h.RoleMaxLen,
		SendBuffer:    h.SendBuffer,
		PruneInterval: h.PruneInterval,
		IdleThreshold: h.IdleThreshold,
	}
}

func warnToken(token string) {
	switch token {
	case "":
		slog.Warn("auth: no token configured, every client is admitted (open mode)")
	case config.PlaceholderToken:
		slog.Warn("auth: token is the placeholder value, change it before exposing the hub")
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	s := cfg.Server
	slog.Info("obsrelay serve starting",
		"http_port", s.HTTPPort,
		"grpc_port", s.GRPCPort,
		"log_dir", s.Log.Dir,
		"include_sender", s.Hub.IncludeSender,
	)

	token := s.Auth.Token()
	warnToken(token)
	gate := auth.NewGate(token)

	daily, err := eventlog.NewDailyFile(s.Log.Dir, s.Log.Queue)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	logCtx, stopLog := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		daily.Run(logCtx)
	}()
	defer func() {
		stopLog()
		wg.Wait()
	}()

	reg := metrics.NewRegistry()
	reg.MustRegister(daily)

	sink := eventlog.Multi{daily}
	if url := s.NATS.URL(); url != "" {
		mirror, err := eventlog.NewNATS(url, s.NATS.Subject)
		if err != nil {
			return err
		}
		defer mirror.Close() //nolint:errcheck
		sink = append(sink, mirror)
		reg.MustRegister(mirror)
		slog.Info("eventlog: mirroring to NATS", "subject", s.NATS.Subject)
	}

	hub := ws.New(hubOptions(s.Hub), gate, sink)
	reg.MustRegister(hub)
	go hub.Run(ctx)

	if s.GRPCPort != 0 {
		grpcSrv, err := receiver.Listen(fmt.Sprintf(":%d", s.GRPCPort), gate, receiver.New(hub))
		if err != nil {
			return err
		}
		go func() {
			slog.Info("gRPC ingest listening", "port", s.GRPCPort)
			if err := grpcSrv.Serve(ctx); err != nil {
				slog.Error("gRPC ingest stopped", "err", err)
			}
		}()
	}

	if configPath != "" {
		go func() {
			if err := config.NewTokenWatcher(configPath, token, gate.SetToken).Run(ctx); err != nil {
				slog.Error("config: watch failed", "path", configPath, "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.HTTPPort),
		Handler:           api.New(hub, gate, s.HTTPPort, reg),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	slog.Info("HTTP server listening", "port", s.HTTPPort)
	err = listenAndServe(ctx, httpSrv)
	slog.Info("obsrelay serve shutting down")
	return err
}
