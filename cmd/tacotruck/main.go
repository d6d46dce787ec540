package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/submit"
)

const exitCancelled = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "tacotruck:", err)
	if submit.IsCancelled(err) {
		os.Exit(exitCancelled)
	}
	os.Exit(1)
}
