package main

import (
	"fmt"
	"os"

	"github.com/blockberries/simplewallet/command/walletd"
)

func main() {
	if err := walletd.GetCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
