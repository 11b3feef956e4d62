// Completion: 100% - Entry point complete
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/xyproto/regalloc/internal/config"
	"github.com/xyproto/regalloc/internal/listing"
)

// regalloc assigns physical registers to listings of virtual-register code
// for x86_64, aarch64, riscv64 and ppc64

const versionString = "regalloc 0.4.0"

func main() {
	cfg := config.Load()
	cmd := newRootCommand(cfg, os.Stdout)
	if err := cmd.Execute(); err != nil {
		reportError(err, !cfg.NoColor)
		os.Exit(1)
	}
}

// reportError prints listing diagnostics with their source context, anything
// else as a one-line error
func reportError(err error, useColor bool) {
	var pe *listing.ParseError
	if errors.As(err, &pe) {
		fmt.Fprint(os.Stderr, pe.Collector.Report(useColor))
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
