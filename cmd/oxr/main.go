package main

import (
	"context"
	"os"

	"github.com/dalfonso89/openexchangerates/internal/platform"
)

func main() {
	ctx, stop := platform.NewShutdownContext(context.Background())
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
