package cert

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// VerifyResult contains the result of certificate verification
type VerifyResult struct {
	Valid       bool
	Role        string
	Hosts       []string
	Error       string
	Certificate *x509.Certificate
}

// ReadCertificate loads the first PEM certificate in path
func ReadCertificate(path string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(path) // #nosec G304 -- path is a user-specified certificate file
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

// VerifyCertificateFile verifies an issued certificate file against a CA file
func VerifyCertificateFile(certPath, caCertPath string) (*VerifyResult, error) {
	cert, err := ReadCertificate(certPath)
	if err != nil {
		return nil, err
	}

	caCert, err := ReadCertificate(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("CA: %w", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	result := &VerifyResult{
		Certificate: cert,
		Role:        role(cert),
		Hosts:       cert.DNSNames,
	}
	for _, ip := range cert.IPAddresses {
		result.Hosts = append(result.Hosts, ip.String())
	}

	opts := x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := cert.Verify(opts); err != nil {
		result.Error = err.Error()
	} else {
		result.Valid = true
	}

	return result, nil
}

func role(cert *x509.Certificate) string {
	if cert.IsCA {
		return "ca"
	}
	for _, u := range cert.ExtKeyUsage {
		switch u {
		case x509.ExtKeyUsageServerAuth:
			return "agent"
		case x509.ExtKeyUsageClientAuth:
			return "client"
		}
	}
	return "unknown"
}

// FormatVerifyResult formats verification result for display
func FormatVerifyResult(result *VerifyResult) string {
	var sb strings.Builder

	sb.WriteString("Certificate Verification Result\n")
	sb.WriteString("===============================\n\n")

	if result.Valid {
		sb.WriteString("Status: VALID\n")
	} else {
		sb.WriteString("Status: INVALID\n")
		sb.WriteString(fmt.Sprintf("Error: %s\n", result.Error))
	}

	sb.WriteString("\nCertificate Details:\n")
	sb.WriteString(fmt.Sprintf("  Role: %s\n", result.Role))
	sb.WriteString(fmt.Sprintf("  Subject: %s\n", result.Certificate.Subject))
	sb.WriteString(fmt.Sprintf("  Issuer: %s\n", result.Certificate.Issuer))
	sb.WriteString(fmt.Sprintf("  Serial: %s\n", result.Certificate.SerialNumber))
	sb.WriteString(fmt.Sprintf("  Valid From: %s\n", result.Certificate.NotBefore))
	sb.WriteString(fmt.Sprintf("  Valid Until: %s\n", result.Certificate.NotAfter))
	if len(result.Hosts) > 0 {
		sb.WriteString(fmt.Sprintf("  Hosts: %s\n", strings.Join(result.Hosts, ", ")))
	}

	return sb.String()
}
