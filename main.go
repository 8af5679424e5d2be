package main

import (
	"os"

	"github.com/brfiscal/nfe-issuer-svc/internal/cli"
)

func main() {
	if !cli.Run(os.Args) {
		os.Exit(1)
	}
}
