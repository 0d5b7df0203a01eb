package main

import (
	"os"

	"stormlightlabs.org/cachedrpc/cmd"
	"stormlightlabs.org/cachedrpc/internal/echo"
)

func main() {
	if err := cmd.Execute(); err != nil {
		echo.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}
