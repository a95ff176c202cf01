package cmd

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/certgen/pki"
)

func newVerifyCmd(g *globals) *cobra.Command {
	var caPath string
	cmd := &cobra.Command{
		Use:   "verify --ca <ca.cert> <leaf.cert>",
		Short: "Verify that a leaf certificate chains to a CA certificate",
		Long: `Verifies the leaf certificate's signature and validity with the given CA
certificate as the only trusted root.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if caPath == "" {
				return fmt.Errorf("%w: --ca is required", errUsage)
			}
			ca, err := readCertificate(caPath)
			if err != nil {
				return err
			}
			leaf, err := readCertificate(args[0])
			if err != nil {
				return err
			}
			if err := pki.VerifyChain(ca, leaf); err != nil {
				return fmt.Errorf("%s does not chain to %s: %w", args[0], caPath, err)
			}
			g.log.Debug().Str("ca", caPath).Str("leaf", args[0]).Msg("chain verified")
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (issued by %s)\n", args[0], pki.Describe(ca).Subject)
			return nil
		},
	}
	cmd.Flags().StringVar(&caPath, "ca", "", "CA certificate PEM file (required)")
	return cmd
}

func readCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	cert, err := pki.ParseCertificatePEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cert, nil
}
