package main

import (
	"os"

	"github.com/sdrshnv/deid/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
