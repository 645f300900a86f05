package main

import (
	"fmt"
	"os"

	"github.com/gdfetch/gdfetch/internal/app"
)

// main : Main of this script
func main() {
	a := app.New(app.FolderMode)
	if err := a.RunContext(app.SignalContext(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
