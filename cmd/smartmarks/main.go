package main

import (
	"context"
	"log"

	"github.com/MrSnakeDoc/smartmarks/internal/app"
)

func main() {
	a, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("❌ smartmarks failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ smartmarks stopped with error: %v", err)
	}
}
