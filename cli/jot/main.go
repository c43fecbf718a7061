package main

import (
	"os"

	jotcmder "github.com/paperjotco/jot/cmd/jot"
)

func main() {
	cmd := jotcmder.NewJotCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
