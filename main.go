package main

import (
	"os"

	"github.com/nikhiltv/tripforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
