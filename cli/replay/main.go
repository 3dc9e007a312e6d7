package main

import (
	"os"

	replaycmder "github.com/papercomputeco/replay/cmd/replay"
)

func main() {
	cmd := replaycmder.NewReplayCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
