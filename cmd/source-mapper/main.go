package main

import (
	"github.com/stackmap/source-mapper/internal/cmd"
)

func main() {
	cmd.Execute()
}
