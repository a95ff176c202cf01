package main

import (
	"os"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/certgen/cmd/certgen/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Wipe guarded key buffers on interrupt and on exit.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	return cmd.Execute()
}
