package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mscrnt/memprobe/pkg/agent"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve or query the remote SPD agent",
		Long: `The agent exposes this machine's SPD images and timings over HTTPS with
mutual TLS, so "memprobe --remote HOST read" works from another machine.
Create the certificates with "memprobe cert".`,
	}

	cmd.AddCommand(agentServeCmd())
	cmd.AddCommand(agentStatusCmd())
	return cmd
}

func agentServeCmd() *cobra.Command {
	var (
		port                      int
		certFile, keyFile, caFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent",
		Long: `Run the agent until interrupted. Certificates come from the [agent] config
section or the flags.

Examples:
  memprobe agent serve --cert agent.pem --key agent-key.pem --ca ca.pem`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != 0 {
				cfg.Agent.Port = port
			}
			if certFile != "" {
				cfg.Agent.CertFile = certFile
			}
			if keyFile != "" {
				cfg.Agent.KeyFile = keyFile
			}
			if caFile != "" {
				cfg.Agent.CAFile = caFile
			}

			dev, source, err := openDevice(false)
			if err != nil {
				return err
			}
			defer func() { _ = dev.Close() }()

			server, err := agent.NewServer(cfg.Agent.Addr(), cfg.Agent.Credentials(), dev, agentLogger())
			if err != nil {
				return err
			}
			logger.Printf("agent serving %s data", source)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config, 2223)")
	cmd.Flags().StringVar(&certFile, "cert", "", "Agent certificate")
	cmd.Flags().StringVar(&keyFile, "key", "", "Agent private key")
	cmd.Flags().StringVar(&caFile, "ca", "", "CA certificate for client verification")
	return cmd
}

// agentLogger writes request logs to stdout, or to the rotated
// [agent] log_file when one is set.
func agentLogger() *log.Logger {
	var out io.Writer = os.Stdout
	if cfg.Agent.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Agent.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
	}
	return log.New(out, "[agent] ", log.LstdFlags)
}

func agentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the agent given by --remote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Remote.Host == "" {
				return fmt.Errorf("no agent configured, use --remote HOST[:PORT]")
			}

			client, err := agent.NewClient(cfg.Remote.Addr(), cfg.Remote.Credentials())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.CheckHealth(); err != nil {
				return err
			}
			info, err := client.SysInfo()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Agent:   %s (%s)\n", info.Host.Hostname, info.Agent)
			fmt.Fprintf(out, "OS:      %s %s (%s)\n", info.Host.Platform, info.Host.PlatformVersion, info.Host.Architecture)
			fmt.Fprintf(out, "CPU:     %s (%s)\n", info.CPU.ModelName, info.CPU.VendorID)
			fmt.Fprintf(out, "Memory:  %s, %.0f%% used\n", humanize.IBytes(info.Memory.Total), info.Memory.UsedPercent)
			return nil
		},
	}
}
