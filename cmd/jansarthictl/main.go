// Command jansarthictl drives the Jansarthi API from a terminal: citizens
// report issues, PWD workers assign them and Parshads record progress.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"jansarthi-be/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "Session expired. Run `jansarthictl login` again.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
