package main

import (
	"log"
	"os"

	"sahayak/cmd/sahayak/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("sahayak: %v", err)
		os.Exit(1)
	}
}
