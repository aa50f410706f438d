package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rahul/taskpilot/internal/gateway"
	"github.com/spf13/cobra"
)

func runTask(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := gateway.NewConsoleGateway(gateway.NewConversation(a.supervisor), os.Stdin, os.Stdout)
	console.ExitWhenIdle = true

	console.Submit(ctx, strings.Join(args, " "))
	// Keep answering questions until the task is done.
	return console.Start(ctx)
}
