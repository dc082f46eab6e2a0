package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/michaelpento.lv/stablearb/cmd"
	"github.com/michaelpento.lv/stablearb/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer utils.CleanupLogger()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
