package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const banner = `
                _
   ___ ___ _ __| |_ __ _  ___ _ __
  / __/ _ \ '__| __/ _` + "`" + ` |/ _ \ '_ \
 | (_|  __/ |  | || (_| |  __/ | | |
  \___\___|_|   \__\__, |\___|_| |_|
                   |___/
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Certificate Generator - Version %s\x1b[0m\n\n", Version)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the certgen version",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, _ []string) {
			printBanner(cmd.OutOrStdout())
		},
	}
}
