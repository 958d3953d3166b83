package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/pkg/cert"
	"github.com/mscrnt/memprobe/pkg/config"
)

const (
	caCertName = "ca.pem"
	caKeyName  = "ca-key.pem"
)

func certCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Manage agent certificates",
		Long: `Create a CA and issue the agent and client certificates used for mutual TLS.

Examples:
  # Create the CA
  memprobe cert init

  # Certificate for an agent reachable as bench-01 or 10.0.0.12
  memprobe cert issue-agent --host bench-01 --host 10.0.0.12

  # Certificate for a client
  memprobe cert issue-client --name ops`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Certificate directory (default: <config dir>/certs)")

	certDir := func() string {
		if dir != "" {
			return dir
		}
		return config.CertDir()
	}

	loadCA := func() (*cert.Authority, error) {
		d := certDir()
		ca, err := cert.LoadCA(filepath.Join(d, caCertName), filepath.Join(d, caKeyName))
		if err != nil {
			return nil, fmt.Errorf("%w (run \"memprobe cert init\" first)", err)
		}
		return ca, nil
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new CA",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := certDir()
			certPath := filepath.Join(d, caCertName)
			if _, err := os.Stat(certPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to replace it", certPath)
			}
			if err := os.MkdirAll(d, 0o700); err != nil {
				return fmt.Errorf("failed to create certificate directory: %w", err)
			}

			ca, err := cert.NewAuthority("memprobe CA")
			if err != nil {
				return err
			}
			if err := ca.SaveCA(certPath, filepath.Join(d, caKeyName)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CA written to %s\n", certPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Replace an existing CA")

	var (
		hosts    []string
		validFor time.Duration
	)
	issueAgentCmd := &cobra.Command{
		Use:   "issue-agent",
		Short: "Issue an agent certificate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ca, err := loadCA()
			if err != nil {
				return err
			}
			c, err := ca.IssueServer(hosts, validFor)
			if err != nil {
				return err
			}
			return saveIssued(cmd, c, certDir(), "agent")
		},
	}
	issueAgentCmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "DNS name or IP the agent is reached at (repeatable)")
	issueAgentCmd.Flags().DurationVar(&validFor, "valid-for", 365*24*time.Hour, "Certificate lifetime")

	var name string
	issueClientCmd := &cobra.Command{
		Use:   "issue-client",
		Short: "Issue a client certificate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ca, err := loadCA()
			if err != nil {
				return err
			}
			c, err := ca.IssueClient(name, validFor)
			if err != nil {
				return err
			}
			return saveIssued(cmd, c, certDir(), "client-"+name)
		},
	}
	issueClientCmd.Flags().StringVar(&name, "name", "client", "Client name")
	issueClientCmd.Flags().DurationVar(&validFor, "valid-for", 365*24*time.Hour, "Certificate lifetime")

	verifyCmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Verify a certificate against the CA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cert.VerifyCertificateFile(args[0], filepath.Join(certDir(), caCertName))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cert.FormatVerifyResult(result))
			if !result.Valid {
				return fmt.Errorf("certificate is not valid")
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, issueAgentCmd, issueClientCmd, verifyCmd)
	return cmd
}

func saveIssued(cmd *cobra.Command, c *cert.Certificate, dir, base string) error {
	certPath := filepath.Join(dir, base+".pem")
	keyPath := filepath.Join(dir, base+"-key.pem")
	if err := c.Save(certPath, keyPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Certificate: %s\nKey:         %s\nExpires:     %s\n",
		certPath, keyPath, c.NotAfter.Format(time.RFC3339))
	return nil
}
