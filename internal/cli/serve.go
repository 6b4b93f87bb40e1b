package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ambertime/amberchain/internal/config"
	"github.com/ambertime/amberchain/rpc"
)

var (
	serveHTTP string
	serveGRPC string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "HTTP/WebSocket listen address (overrides listen.http)")
	serveCmd.Flags().StringVar(&serveGRPC, "grpc", "", "gRPC listen address (overrides listen.grpc)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the permission gateway",
	Long: "Opens the permission store and node wallet, then serves grant, revoke, listpermissions,\n" +
		"approveauthority and requestauthority over JSON-RPC (HTTP, WebSocket and gRPC).",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serveHTTP != "" {
		cfg.Listen.HTTP = serveHTTP
	}
	if serveGRPC != "" {
		cfg.Listen.GRPC = serveGRPC
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := openGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	handler := rpc.NewHandler(gw.service, logger.With("component", "rpc"))
	errCh := make(chan error, 2)

	var httpSrv *rpc.HTTPServer
	if cfg.Listen.HTTP != "" {
		l, err := net.Listen("tcp", cfg.Listen.HTTP)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Listen.HTTP, err)
		}
		httpSrv = rpc.NewHTTPServer(cfg.Listen.HTTP, handler, logger)
		go func() { errCh <- httpSrv.Serve(l) }()
	}

	var grpcSrv *rpc.GRPCServer
	if cfg.Listen.GRPC != "" {
		l, err := net.Listen("tcp", cfg.Listen.GRPC)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Listen.GRPC, err)
		}
		grpcSrv = rpc.NewGRPCServer(handler, logger)
		go func() { errCh <- grpcSrv.Serve(l) }()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logger.Info("Shutting down permission gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	return serveErr
}
