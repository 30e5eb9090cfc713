package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localcue/dictate/internal/controller"
	"github.com/localcue/dictate/internal/shortcut"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller and listen for the Alt+Space toggle chord",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctrl, err := controller.New(dataDirFlag)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}
	defer ctrl.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	listener := shortcut.New()
	if err := listener.Start(ctx, func() {
		res, err := ctrl.Toggle(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "toggle: %v\n", err)
		case res.Text != nil:
			fmt.Printf("transcribed: %s\n", *res.Text)
		}
	}); err != nil {
		return fmt.Errorf("register %s: %w", listener.Combo(), err)
	}
	defer listener.Stop()

	fmt.Printf("listening for %s, press Ctrl+C to quit\n", listener.Combo())
	<-ctx.Done()
	return nil
}
