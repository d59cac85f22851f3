package main

import (
	"os"

	"github.com/hashicorp-forge/pagewright/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
