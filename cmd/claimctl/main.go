package main

import (
	"os"

	"github.com/kirillkom/claims-processor/internal/config"
)

func main() {
	if err := newRootCmd(config.Load).Execute(); err != nil {
		os.Exit(1)
	}
}
