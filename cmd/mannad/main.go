package main

import (
	"log"

	"github.com/dailymanna/manna/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ mannad failed to start: %v", err)
	}
}
