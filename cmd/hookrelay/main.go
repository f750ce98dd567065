package main

import (
	"os"

	"hookrelay/cmd/hookrelay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
