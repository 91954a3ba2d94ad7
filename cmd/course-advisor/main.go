// Package main is the entry point for the course advisor service.
package main

import (
	// Sets GOMAXPROCS to match the container CPU quota on import.
	_ "go.uber.org/automaxprocs"

	advisor "github.com/kart-io/course-advisor/internal/advisor"
)

func main() {
	advisor.NewApp().Run()
}
