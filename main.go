package main

import (
	"github.com/netsynth/netsynth/cmd"
)

func main() {
	cmd.Execute()
}
