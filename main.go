package main

import (
	"github.com/ghostkernel/ghostio/cmd"
)

func main() {
	cmd.Execute()
}
