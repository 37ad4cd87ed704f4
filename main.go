package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eclipse-csi/otterdog-sub000/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(code)
}
