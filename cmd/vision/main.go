package main

import (
	"github.com/custodia-labs/vision/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
