package main

import (
	"os"

	"github.com/aiyo-oss/aiyo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
