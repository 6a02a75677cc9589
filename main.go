package main

import (
	"github.com/lexigraph/lexigraph-cli/cmd"
)

func main() {
	cmd.Execute()
}
