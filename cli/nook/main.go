package main

import (
	"os"

	nookcmder "github.com/papercomputeco/nook/cmd/nook"
)

func main() {
	cmd := nookcmder.NewNookCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
