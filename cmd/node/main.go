package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/agorascan/agorascan-node/app"
	"github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/wallet"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// PID file management - Use user home directory
func getPidFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// fallback to current directory
		return "./agorascan-node.pid"
	}
	return filepath.Join(homeDir, ".agorascan-node", "agorascan-node.pid")
}

var (
	pidFile = getPidFilePath()
)

var configFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "agorascan-node",
		Short: "Agorascan indexing service",
		Long:  `Agorascan subscribes to block production from an Agora consensus node, keeps a query-friendly ledger projection, and serves the read API, the governance surface and the websocket push channel.`,
		Run: func(cmd *cobra.Command, args []string) {
			runNode()
		},
	}

	// Register global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(nodeCmd())
	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Failed to execute command:", err)
		os.Exit(1)
	}
}

func nodeCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "node",
		Short: "Node management commands",
		Long:  `Commands for managing the indexing service.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the node as daemon",
		Run: func(cmd *cobra.Command, args []string) {
			runNodeDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the node",
		Run: func(cmd *cobra.Command, args []string) {
			stopDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show node status",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the node",
		Run: func(cmd *cobra.Command, args []string) {
			restartDaemon(pidFile)
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agorascan-node %s (built %s)\n", Version, BuildTime)
		},
	}
}

func runNode() {
	application, err := app.New(configFile)
	if err != nil {
		fmt.Println("Failed to initialize application:", err)
		os.Exit(1)
	}

	application.SigHandler()
	logger.Info("Node start.")

	if err := application.StartAll(); err != nil {
		logger.Error("Failed to start services:", err)
		application.Terminate()
		os.Exit(1)
	}

	application.Wait()
	logger.Info("Node terminated.")
}

// Start as daemon - improved logger error handling
func runNodeDaemon(pidFilePath string) {
	// Check internal execution via env var (prevent infinite recursion)
	if os.Getenv("AGORASCAN_DAEMON_CHILD") == "1" {
		// Execute actual node (Child process)
		runNode()
		return
	}

	// Check if already running
	if isRunning(pidFilePath) {
		fmt.Println("Node is already running")
		return
	}

	executable, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cmd := exec.Command(executable, "node", "start")
	if configFile != "" {
		cmd = exec.Command(executable, "node", "start", "--config", configFile)
	}
	cmd.Env = append(os.Environ(), "AGORASCAN_DAEMON_CHILD=1")

	// Redirect standard I/O to null (Complete daemonization)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	// Start in a new process group
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		fmt.Printf("Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	if err := writePidFile(pidFilePath, cmd.Process.Pid); err != nil {
		fmt.Printf("Failed to write PID file: %v\n", err)
		cmd.Process.Kill()
		os.Exit(1)
	}

	fmt.Printf("Node started as daemon with PID %d\n", cmd.Process.Pid)

	// Parent process exits here
	os.Exit(0)
}

func stopDaemon(pidFilePath string) {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		fmt.Println("Node is not running or PID file not found")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("Process not found")
		removePidFile(pidFilePath)
		return
	}

	// Send SIGTERM signal
	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to stop process: %v\n", err)
		return
	}

	fmt.Printf("Stopping node (PID: %d)...\n", pid)

	removePidFile(pidFilePath)
}

func restartDaemon(pidFilePath string) {
	fmt.Println("Restarting node...")
	stopDaemon(pidFilePath)
	runNodeDaemon(pidFilePath)
}

// Check status
func showStatus(pidFilePath string) {
	fmt.Printf("PID file path: %s\n", pidFilePath)

	if isRunning(pidFilePath) {
		pid, _ := readPidFile(pidFilePath)
		fmt.Printf("Node is running (PID: %d)\n", pid)
	} else {
		fmt.Println("Node is not running")

		if _, err := os.Stat(pidFilePath); err == nil {
			fmt.Println("PID file exists but process is not running - cleaning up")
			removePidFile(pidFilePath)
		}
	}
}

// Check if running
func isRunning(pidFilePath string) bool {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process is actually alive (Unix/Linux)
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

func readPidFile(pidFilePath string) (int, error) {
	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

func writePidFile(pidFilePath string, pid int) error {
	dir := filepath.Dir(pidFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(pidFilePath, []byte(strconv.Itoa(pid)), 0644)
}

func removePidFile(pidFilePath string) {
	os.Remove(pidFilePath)
}

func getDefaultWalletDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./resource/wallet"
	}
	return filepath.Join(homeDir, ".agorascan-node", "wallet")
}

func walletCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "wallet",
		Short: "Wallet management commands",
		Long:  `Commands for the key wallet used by the chain generator and tests.`,
	}

	var walletDir string
	cmd.PersistentFlags().StringVar(&walletDir, "dir", getDefaultWalletDir(), "Wallet directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a new mnemonic wallet",
		Run: func(cmd *cobra.Command, args []string) {
			wm := wallet.NewWalletManager(walletDir)
			w, err := wm.CreateWallet()
			if err != nil {
				fmt.Printf("Failed to create wallet: %v\n", err)
				os.Exit(1)
			}
			if err := wm.SaveWallet(); err != nil {
				fmt.Printf("Failed to save wallet: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wallet created at %s\n", walletDir)
			fmt.Printf("Mnemonic: %s\n", w.Mnemonic)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore [mnemonic]",
		Short: "Restore a wallet from a mnemonic",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			wm := wallet.NewWalletManager(walletDir)
			if _, err := wm.RestoreWallet(args[0]); err != nil {
				fmt.Printf("Failed to restore wallet: %v\n", err)
				os.Exit(1)
			}
			if err := wm.SaveWallet(); err != nil {
				fmt.Printf("Failed to save wallet: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wallet restored at %s\n", walletDir)
		},
	})

	return cmd
}
