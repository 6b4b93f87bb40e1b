// Package cli amberperm 命令行
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath      string
	gatewayEndpoint string
	gatewayProtocol string
)

var rootCmd = &cobra.Command{
	Use:   "amberperm",
	Short: "Amberchain permission gateway",
	Long: "Grants and revokes chain permissions from the node wallet, aggregates multi-admin consensus\n" +
		"for pending changes, and serves the permission RPC surface over HTTP, WebSocket and gRPC.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to amberperm YAML config")
	rootCmd.PersistentFlags().StringVar(&gatewayEndpoint, "endpoint", "http://127.0.0.1:8571", "Gateway endpoint for client commands")
	rootCmd.PersistentFlags().StringVar(&gatewayProtocol, "protocol", "http", "Gateway protocol: http, grpc, websocket")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
