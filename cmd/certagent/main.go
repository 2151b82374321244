package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/certagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "certagent:", err)
		os.Exit(1)
	}
}
