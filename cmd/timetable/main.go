// Package main is the entry point for the timetable service.
package main

import (
	"os"

	"github.com/unitimetable/timetable/cmd/timetable/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
