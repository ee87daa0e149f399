package main

import (
	"os"

	rehearsecmder "github.com/papercomputeco/rehearse/cmd/rehearse"
)

func main() {
	cmd := rehearsecmder.NewRehearseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
