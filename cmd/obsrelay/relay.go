package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsremote/obsrelay/internal/api"
	"github.com/obsremote/obsrelay/internal/config"
	"github.com/obsremote/obsrelay/internal/metrics"
	"github.com/obsremote/obsrelay/internal/ws"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the pass-through relay (no auth, no validation, sender excluded)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Relay.Port, _ = cmd.Flags().GetInt("port")
		}
		return runRelay(cmd.Context(), cfg.Relay)
	},
}

func init() {
	relayCmd.Flags().Int("port", config.DefaultRelayPort, "relay port (overrides HANDS_RELAY_PORT and relay.port)")
}

func runRelay(ctx context.Context, rc config.RelayConfig) error {
	opts := ws.RelayOptions()
	opts.MaxFrameBytes = rc.MaxFrameBytes

	hub := ws.New(opts, nil, nil)
	go hub.Run(ctx)

	reg := metrics.NewRegistry()
	reg.MustRegister(hub)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", rc.Port),
		Handler:           api.NewRelay(hub, rc.Port, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("relay listening", "url", fmt.Sprintf("ws://localhost:%d", rc.Port), "max_frame_bytes", rc.MaxFrameBytes)
	return listenAndServe(ctx, srv)
}
