package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/blacktop/skyrelay/cmd"
	"github.com/blacktop/skyrelay/internal/logutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		logutil.Errorf("%v", err)
		os.Exit(1)
	}
}
