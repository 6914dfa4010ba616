package main

import (
	"os"

	"github.com/spigell/cold-emailer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
