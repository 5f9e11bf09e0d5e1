package main

import (
	"fmt"
	"os"

	"github.com/blockberries/simplewallet/command/tp"
)

func main() {
	if err := tp.GetCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
