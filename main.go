package main

import (
	"os"

	"github.com/umarjalal00/location-providers/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
