package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/kahrendsen/andersgo/pkg/config"
	"github.com/kahrendsen/andersgo/internal/analysis"
	"github.com/kahrendsen/andersgo/internal/service/rpc"
	"github.com/kahrendsen/andersgo/pkg/telemetry"
)

var (
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC pointer-analysis server",
	Long: `Serve starts a long-lived gRPC server exposing Analyze and PointsTo
RPCs, so a fleet of downstream clients can submit modules and query
the resulting points-to sets without each one linking the engine.`,
	Example: `  # Start the server on the default address
  andersgo serve

  # Start it on a custom address
  andersgo serve --addr :7070`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":7070", "Listen address for the gRPC server")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdownTelemetry(ctx)

	lis, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", serveAddr, err)
	}

	eng := analysis.New(analysis.Options{FieldSensitive: true, WLOrder: "prio"})
	srv := rpc.NewServer(eng, log)

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(rpc.Codec()))
	rpc.RegisterServer(grpcServer, srv)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down gRPC server...")
		grpcServer.GracefulStop()
	}()

	log.Info("pointer-analysis server listening on %s", serveAddr)
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
