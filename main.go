package main

import (
	"os"

	"github.com/dyng/subfeed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
