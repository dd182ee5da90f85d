package main

import (
	"fmt"
	"os"

	"github.com/agorascan/agorascan-node/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"

	host    string
	port    int
	logPath string
	refresh int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "agorascan-dashboard",
		Short: "Agorascan monitoring dashboard",
		Long: `Agorascan Dashboard - terminal monitor for the indexing service

Shows indexing height, chain aggregates, the latest blocks, governance
proposal states and the service log in one screen.

Examples:
  agorascan-dashboard                       # localhost:3825
  agorascan-dashboard --port 4825           # custom read-API port
  agorascan-dashboard --host 10.0.0.12      # remote host`,
		Run: func(cmd *cobra.Command, args []string) {
			runDashboard()
		},
	}

	rootCmd.Flags().StringVar(&host, "host", "localhost", "node host address")
	rootCmd.Flags().IntVar(&port, "port", 3825, "public read-API port")
	rootCmd.Flags().StringVar(&logPath, "log-path", "./log/agorascan", "log path base (without date suffix)")
	rootCmd.Flags().IntVar(&refresh, "refresh", 2, "refresh interval in seconds")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Agorascan Dashboard v%s (built: %s)\n", Version, BuildTime)
		},
	}
}

func runDashboard() {
	config := dashboard.Config{
		Host:       host,
		Port:       port,
		LogPath:    logPath,
		RefreshSec: refresh,
	}

	if err := dashboard.Run(config); err != nil {
		fmt.Printf("Dashboard error: %v\n", err)
		os.Exit(1)
	}
}
