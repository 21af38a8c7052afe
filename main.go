package main

import (
	"os"

	"github.com/uharev-ux/dex-dump-screener/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
