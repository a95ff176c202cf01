package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jmcleod/certgen/config"
)

// Version is set at build time.
var Version = "dev"

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitInput   = 2
)

// errUsage marks command-line parse errors.
var errUsage = errors.New("usage error")

// globals is shared by every command of one invocation.
type globals struct {
	verbose int
	log     zerolog.Logger
}

func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:   "certgen",
		Short: "certgen issues a self-signed CA and a leaf certificate",
		Long: `Generates a self-signed certificate authority and a leaf certificate signed by
it, writing the key, signing request and certificate of each as PEM files.
Complete documentation is available at https://github.com/jmcleod/certgen`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			g.log = newLogger(cmd.ErrOrStderr(), g.verbose)
		},
	}
	root.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.AddCommand(
		newGenerateCmd(g),
		newInspectCmd(g),
		newVerifyCmd(g),
		newLedgerCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs certgen with the process arguments and returns the exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	g := &globals{log: newLogger(stderr, 0)}
	root := newRootCmd(g)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	code := ExitCode(err)
	if err != nil {
		g.log.Error().Err(err).Int("exit_code", code).Msg("certgen failed")
	}
	return code
}

// ExitCode maps an error to the process exit status: 2 for invalid input,
// 1 for any other failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage), config.IsInputError(err):
		return ExitInput
	default:
		return ExitFailure
	}
}

// exactArgs is cobra.ExactArgs with usage-error classification.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// minArgs is cobra.MinimumNArgs with usage-error classification.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}
