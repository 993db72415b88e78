// Command gobarber is a terminal client for the GoBarber API: sign in, sign up,
// password recovery and profile editing.
package main

import (
	"fmt"
	"os"

	"github.com/patric-chuzhbe/gobarber/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	theApp, err := app.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gobarber:", err)
		return 1
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "gobarber:", err)
		return 1
	}

	return 0
}
