package main

import (
	"fmt"
	"os"

	"video-dedup/internal/platform/config"
)

func main() {
	_ = config.Load()
	if err := newRootCmd(config.FromEnv()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
