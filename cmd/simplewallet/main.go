package main

import (
	"fmt"
	"os"

	"github.com/blockberries/simplewallet/command/wallet"
)

func main() {
	if err := wallet.GetCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
