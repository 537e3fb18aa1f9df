package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"hpcq/cmd/hpcq/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := commands.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hpcq: %v\n", err)
		stop()
		os.Exit(1)
	}
}
