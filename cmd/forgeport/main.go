package main

import (
	"github.com/forgeport/forgeport/internal/cli"
)

func main() {
	cli.Execute()
}
