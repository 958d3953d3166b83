package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mscrnt/memprobe/internal/version"
	"github.com/mscrnt/memprobe/pkg/config"
)

var (
	configPath string
	dryRun     bool
	verbose    bool
	outputDir  string
	remote     string

	cfg    config.Config
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memprobe",
		Short: "memprobe - SPD and memory timing probe",
		Long: `memprobe reads the SPD EEPROM of every memory slot over the SMBus,
decodes and saves the images, and reports the memory controller timings.

Direct bus access needs root on Linux (/dev/port) or the HardwareMonitor
driver on Windows. Use --dry-run to work against a simulated bus.`,
		Version:           version.Get().Short(),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/memprobe/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Use a simulated SMBus instead of hardware")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every bus transaction")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for dimmN.spd files (default from config)")
	rootCmd.PersistentFlags().StringVar(&remote, "remote", "", "Read from the agent at HOST[:PORT] (certificates from the [remote] config)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(dumpCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(timingsCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(certCmd())

	return rootCmd
}

// setup loads the config and applies flag overrides
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if remote != "" {
		host, port, err := splitHostPort(remote, cfg.Remote.Port)
		if err != nil {
			return err
		}
		cfg.Remote.Host, cfg.Remote.Port = host, port
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	logger = log.New(out, "", log.LstdFlags)
	if cfg.DryRun {
		logger.SetPrefix("[dry run] ")
	}
	return nil
}

func splitHostPort(addr string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port given
		return addr, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return host, port, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
