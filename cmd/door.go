package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"power_windows/internal/broadcast"
	"power_windows/internal/config"
	"power_windows/internal/handlers"
	"power_windows/internal/hardware"
	"power_windows/internal/linklayer"
	"power_windows/internal/logger"
	"power_windows/internal/metrics"
	"power_windows/internal/models"
	"power_windows/internal/repository"
	"power_windows/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const doorEventBuffer = 64

var doorCmd = &cobra.Command{
	Use:   "door",
	Short: "Run a door node",
	Long: `Run a door node: the command endpoints called by the hub, the relay
driver, and the overload / inactivity supervisor.

With mqtt.broker set the node announces its address for the hub to find.
With kafka.brokers set every motion event is also published to Kafka.`,
	RunE: runDoor,
}

func init() {
	rootCmd.AddCommand(doorCmd)
}

func runDoor(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadDoor(configFile)
	if err != nil {
		return err
	}
	log := logger.Get(cfg.LogLevel).With("role", "door", "door", cfg.Identity)

	conn, err := openDB(cfg.DB.Path, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	board, err := hardware.Open(cfg.Hardware)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}
	defer board.Close()
	driver := hardware.NewRelayDriver(board, board, hardware.WithSettleDelay(cfg.SettleDelay))

	sinks, closeSinks, err := eventSinks(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	halt := service.LogHalt(log)
	breaker := service.NewFaultBreaker(service.FaultThreshold, halt, log, m)
	events := broadcast.New[models.MotionEvent](doorEventBuffer)
	commands := broadcast.New[models.Command](cfg.CommandBuffer)

	door := service.NewDoorService(driver, service.DoorOptions{
		Identity: cfg.Identity,
		Config:   cfg.Thresholds,
		Debug:    cfg.Debug,
		Breaker:  breaker,
		Events:   events,
		Metrics:  m,
		Log:      log,
	})
	// Refuse to run with a relay that cannot be confirmed off.
	if err := door.Release("startup"); err != nil {
		return fmt.Errorf("release relays at startup: %w", err)
	}
	channel := service.NewConfigChannel(door, repos.ConfigRepo, events, log)
	if _, err := channel.Restore(ctx); err != nil {
		log.Warnw("door_config_restore_failed", "err", err)
	}
	node := service.NewDoorNode(door, channel, service.NodeOptions{
		Commands: commands,
		Events:   events,
		Breaker:  breaker,
		Halt:     halt,
		Tick:     cfg.Tick,
		Metrics:  m,
		Log:      log,
	})
	recorder := service.NewEventRecorder(repos.EventRepo, func(reason string, err error) {
		if rerr := door.Release(reason); rerr != nil {
			log.Errorw("door_release_failed", "reason", reason, "error", rerr)
		}
		halt(reason, err)
	}, m, log, sinks...)
	recorded := events.Subscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return node.Run(ctx) })
	g.Go(func() error { return recorder.Run(ctx, recorded) })

	if cfg.MQTT.Enabled() {
		client, err := linklayer.Connect(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		announcer := linklayer.NewAnnouncer(client, cfg.MQTT.Topic, cfg.MAC, cfg.AdvertiseIP, cfg.MQTT.Interval, log)
		g.Go(func() error {
			announcer.Run(ctx)
			return nil
		})
	}

	h := handlers.NewHandler(service.NewDoorNodeService(node, repos), m, log)
	serve(ctx, g, cfg.Port, h.InitDoorRoutes(), log)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
