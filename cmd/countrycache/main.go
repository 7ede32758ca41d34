package main

import (
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	env := &appEnv{}
	defer env.Close()

	app := newCLIApp(env)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		env.Close()
		os.Exit(1)
	}
}
