package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/certgen/config"
	"github.com/jmcleod/certgen/internal/uuid"
	"github.com/jmcleod/certgen/pki"
	"github.com/jmcleod/certgen/storage"
	bboltstorage "github.com/jmcleod/certgen/storage/bbolt"
	"github.com/jmcleod/certgen/storage/file"
)

// flagKeyBitsDefault is the --key-bits default shown in help. It only
// applies to RSA; other algorithms use their own default unless the flag is
// set.
const flagKeyBitsDefault = 4096

type generateOptions struct {
	configPath string
	hostname   string
	keyBits    int
	years      int
	createCA   bool
	algorithm  string
	digest     string
	outDir     string
	ledger     string
}

func newGenerateCmd(g *globals) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a CA and a leaf certificate for a hostname",
		Long: `Generates a self-signed CA and a leaf certificate for --hostname signed by it.
Both bundles are written to <out-dir>/<hostname>/ as {name}-CA.{csr,pkey,cert}
and {name}.{csr,pkey,cert}, with dots in the hostname replaced by dashes.

Settings may also come from a YAML file given by --config. Flags set on the
command line take precedence over the file.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringVar(&opts.hostname, "hostname", config.DefaultHostname, "Common name of the leaf certificate")
	f.IntVar(&opts.keyBits, "key-bits", flagKeyBitsDefault, "Key strength in bits")
	f.IntVar(&opts.years, "years", config.DefaultYears, "Validity in years of 365 days")
	f.BoolVar(&opts.createCA, "create-ca", true, "Issue a CA to sign the leaf (required)")
	f.StringVar(&opts.algorithm, "algorithm", config.DefaultAlgorithm, "Key algorithm: rsa, dsa, ecdsa or ed25519")
	f.StringVar(&opts.digest, "digest", string(pki.DefaultDigest), "Signature digest: sha256, sha384 or sha512")
	f.StringVar(&opts.outDir, "out-dir", "", "Parent directory for output (default: working directory)")
	f.StringVar(&opts.ledger, "ledger", "", "bbolt file recording issued certificates (empty disables)")
	return cmd
}

// loadConfig merges the config file, if any, with the flags set on the
// command line.
func (o *generateOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}

	f := cmd.Flags()
	if f.Changed("hostname") {
		cfg.Hostname = o.hostname
	}
	if f.Changed("key-bits") {
		if o.keyBits <= 0 {
			return config.Config{}, fmt.Errorf("%w: %d bits", pki.ErrInvalidKeySize, o.keyBits)
		}
		cfg.KeyBits = o.keyBits
	}
	if f.Changed("years") {
		cfg.Years = o.years
	}
	if f.Changed("create-ca") {
		cfg.CreateCA = o.createCA
	}
	if f.Changed("algorithm") {
		cfg.Algorithm = o.algorithm
	}
	if f.Changed("digest") {
		cfg.Digest = o.digest
	}
	if f.Changed("out-dir") {
		cfg.OutDir = o.outDir
	}
	if f.Changed("ledger") {
		cfg.Ledger = o.ledger
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, g *globals, opts *generateOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	parent := cfg.OutDir
	if parent == "" {
		if parent, err = os.Getwd(); err != nil {
			return fmt.Errorf("%w: %v", pki.ErrPersistenceFailure, err)
		}
	}
	dir := filepath.Join(parent, pki.BaseFilename(req.CommonName, false))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating output directory: %v", pki.ErrPersistenceFailure, err)
	}

	runID := uuid.New()
	logger := g.log.With().Str("run_id", runID).Logger()

	files := file.NewWriter(dir)
	var w pki.BundleWriter = files
	if cfg.Ledger != "" {
		ledger, err := bboltstorage.NewLedgerFromFile(cfg.Ledger, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return fmt.Errorf("%w: %v", pki.ErrPersistenceFailure, err)
		}
		defer ledger.Close()
		w = &storage.RecordingWriter{Next: files, Ledger: ledger, RunID: runID}
		logger.Debug().Str("ledger", cfg.Ledger).Msg("recording issuance")
	}

	logger.Info().
		Str("hostname", req.CommonName).
		Str("algorithm", string(req.Algorithm)).
		Int("bits", req.Bits).
		Int("years", req.Years).
		Str("dir", dir).
		Msg("generating certificates")

	issuer := pki.NewIssuer(pki.WithLogger(logger))
	chain, err := issuer.IssueChain(cmd.Context(), req, w)
	if err != nil {
		if chain != nil && chain.Authority != nil {
			logger.Warn().Str("base_name", chain.Authority.BaseName).Msg("authority bundle was written before the failure")
		}
		return err
	}

	out := cmd.OutOrStdout()
	for _, b := range []*pki.Bundle{chain.Authority, chain.Leaf} {
		csrPath, keyPath, certPath := files.Paths(b.BaseName)
		fmt.Fprintf(out, "%s\n  certificate: %s\n  key:         %s\n  request:     %s\n", b.BaseName, certPath, keyPath, csrPath)
	}
	fmt.Fprintf(out, "run: %s\n", runID)
	return nil
}
