package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/taskpilot/internal/agent"
	"github.com/rahul/taskpilot/internal/gateway"
	"github.com/rahul/taskpilot/internal/observability"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	conv := gateway.NewConversation(a.supervisor)
	var gateways []gateway.Messenger

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, conv)
		if err != nil {
			return err
		}
		gateways = append(gateways, tg)
	}
	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, conv)
		if err != nil {
			return err
		}
		gateways = append(gateways, dc)
	}
	if len(gateways) == 0 {
		return errors.New("no gateway is enabled; use \"run\" for the console")
	}

	dash := observability.NewDashboard()
	dash.Open()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := gateway.NewMux(gateways...)
	scheduler := agent.NewScheduler(a.supervisor, a.schedules, mux)
	go scheduler.Start(ctx)

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				dash.Refresh()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat(observability.ActiveTasks())
			}
		}
	}()

	for _, g := range gateways {
		go func(g gateway.Messenger) {
			if err := g.Start(ctx); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY %s CRITICAL ERROR: %v\033[0m", g.Name(), err)
				stop() // stop caller if gateway dies
			}
		}(g)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	for _, g := range gateways {
		_ = g.Stop()
	}

	dash.Close()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
	return nil
}
