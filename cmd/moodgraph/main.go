package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/mood"
)

func main() {
	g, err := mood.New(nil)
	if err != nil {
		log.Fatalf("Failed to build mood graph: %v", err)
	}

	out, err := mood.Run(context.Background(), g, "Hi, this is Lance.")
	if err != nil {
		log.Fatalf("Mood graph failed: %v", err)
	}
	fmt.Printf("{'%s': %q}\n", consts.State_GraphState, out)
}
