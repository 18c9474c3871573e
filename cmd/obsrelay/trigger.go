package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/obsremote/obsrelay/internal/config"
	"github.com/obsremote/obsrelay/internal/event"
	"github.com/obsremote/obsrelay/internal/receiver"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <event-json>",
	Short: "Send one event to a running hub over gRPC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		token, _ := cmd.Flags().GetString("token")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		req, err := triggerRequest(args[0])
		if err != nil {
			return err
		}

		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		}

		resp, err := receiver.NewIngestClient(conn).Trigger(ctx, req)
		if err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
		out, err := json.Marshal(resp.AsMap())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	triggerCmd.Flags().String("addr", "localhost:50051", "gRPC ingest address")
	triggerCmd.Flags().String("token", os.Getenv(config.DefaultTokenEnv), "access token (default $OBS_REMOTE_TOKEN)")
	triggerCmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
}

// triggerRequest validates raw locally before it goes on the wire.
func triggerRequest(raw string) (*structpb.Struct, error) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("event: %w", event.ErrMalformed)
	}
	if _, err := event.FromMap(m); err != nil {
		return nil, fmt.Errorf("event: %w", err)
	}
	return structpb.NewStruct(m)
}
