package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/certgen/pki"
)

// inspectResult describes one inspected file.
type inspectResult struct {
	File        string               `json:"file"`
	Type        string               `json:"type"`
	Certificate *pki.CertificateInfo `json:"certificate,omitempty"`
	Request     *pki.RequestInfo     `json:"request,omitempty"`
}

func newInspectCmd(g *globals) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Describe PEM certificates and signing requests",
		Long: `Reads certificate (.cert) and certificate signing request (.csr) PEM files
and prints their subject, issuer, serial number, validity and key algorithm.
Private key files are recognised but never printed.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]inspectResult, 0, len(args))
			for _, path := range args {
				res, err := inspectFile(path)
				if err != nil {
					return err
				}
				g.log.Debug().Str("file", path).Str("type", res.Type).Msg("inspected")
				results = append(results, res)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), results)
			}
			for _, res := range results {
				printInspectResult(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func inspectFile(path string) (inspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return inspectResult{}, fmt.Errorf("cannot read file: %w", err)
	}

	res := inspectResult{File: path, Type: pki.PEMType(data)}
	switch res.Type {
	case "CERTIFICATE":
		cert, err := pki.ParseCertificatePEM(data)
		if err != nil {
			return inspectResult{}, fmt.Errorf("%s: %w", path, err)
		}
		info := pki.Describe(cert)
		res.Certificate = &info
	case "CERTIFICATE REQUEST":
		csr, err := pki.ParseRequestPEM(data)
		if err != nil {
			return inspectResult{}, fmt.Errorf("%s: %w", path, err)
		}
		info := pki.DescribeRequest(csr)
		res.Request = &info
	case "PRIVATE KEY":
	default:
		return inspectResult{}, fmt.Errorf("%s: %w", path, pki.ErrInvalidPEM)
	}
	return res, nil
}

func printInspectResult(w io.Writer, res inspectResult) {
	fmt.Fprintf(w, "%s (%s)\n", res.File, strings.ToLower(res.Type))
	switch {
	case res.Certificate != nil:
		c := res.Certificate
		fmt.Fprintf(w, "  Subject:      %s\n", c.Subject)
		fmt.Fprintf(w, "  Issuer:       %s\n", c.Issuer)
		fmt.Fprintf(w, "  Serial:       %s\n", c.SerialNumber)
		fmt.Fprintf(w, "  Valid from:   %s\n", c.NotBefore.Format(time.RFC3339))
		fmt.Fprintf(w, "  Valid until:  %s\n", c.NotAfter.Format(time.RFC3339))
		fmt.Fprintf(w, "  Algorithm:    %s\n", c.KeyAlgorithm)
		fmt.Fprintf(w, "  Fingerprint:  %s\n", c.FingerprintSHA256)
		fmt.Fprintf(w, "  CA:           %t (self-signed: %t)\n", c.IsCA, c.SelfSigned)
		if len(c.DNSNames) > 0 {
			fmt.Fprintf(w, "  DNS names:    %s\n", strings.Join(c.DNSNames, ", "))
		}
		fmt.Fprintf(w, "  Status:       %s\n", c.Status)
	case res.Request != nil:
		r := res.Request
		fmt.Fprintf(w, "  Subject:      %s\n", r.Subject)
		fmt.Fprintf(w, "  Algorithm:    %s\n", r.KeyAlgorithm)
		fmt.Fprintf(w, "  Signature:    %s\n", r.Signature)
		if len(r.DNSNames) > 0 {
			fmt.Fprintf(w, "  DNS names:    %s\n", strings.Join(r.DNSNames, ", "))
		}
	default:
		fmt.Fprintln(w, "  (private key material is not displayed)")
	}
	fmt.Fprintln(w)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
