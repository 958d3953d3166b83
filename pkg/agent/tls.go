package agent

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"go.uber.org/multierr"
)

// DefaultPort is the port the agent listens on
const DefaultPort = 2223

// Credentials names the PEM files one end of the link presents, and the CA
// that must have signed the other end.
type Credentials struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

// Check reports every missing or unreadable file at once.
func (c Credentials) Check() error {
	var err error
	for _, f := range []struct{ what, path string }{
		{"certificate", c.CertFile},
		{"key", c.KeyFile},
		{"CA certificate", c.CAFile},
	} {
		if f.path == "" {
			err = multierr.Append(err, fmt.Errorf("%s file is required", f.what))
			continue
		}
		if _, statErr := os.Stat(f.path); statErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s file not found: %s", f.what, f.path))
		}
	}
	return err
}

// ServerTLS returns a TLS 1.3 config that only accepts clients holding a
// certificate issued by the CA.
func (c Credentials) ServerTLS() (*tls.Config, error) {
	pair, pool, err := c.load()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLS returns a TLS 1.3 config that presents the client certificate and
// trusts only agents issued by the CA.
func (c Credentials) ClientTLS() (*tls.Config, error) {
	pair, pool, err := c.load()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func (c Credentials) load() (tls.Certificate, *x509.CertPool, error) {
	if err := c.Check(); err != nil {
		return tls.Certificate{}, nil, err
	}

	pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	caPEM, err := os.ReadFile(c.CAFile)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return tls.Certificate{}, nil, fmt.Errorf("failed to parse CA certificate %s", c.CAFile)
	}
	return pair, pool, nil
}
