package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
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

var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Run the hub",
	Long: `Run the hub: sample the button pairs, track which doors are reachable,
and relay one command per door per poll.

Doors are found through MQTT presence announcements when mqtt.broker is set,
otherwise through the static clients list.`,
	RunE: runHub,
}

func init() {
	rootCmd.AddCommand(hubCmd)
}

func runHub(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadHub(configFile)
	if err != nil {
		return err
	}
	log := logger.Get(cfg.LogLevel).With("role", "hub")

	bindings, pairs, err := doorBindings(cfg.Doors)
	if err != nil {
		return err
	}

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

	sinks, closeSinks, err := eventSinks(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lister, closeLister, err := clientLister(cfg, log)
	if err != nil {
		return err
	}
	defer closeLister()

	m := metrics.New()
	halt := service.LogHalt(log)
	updates := broadcast.New[[]models.DoorRecord](cfg.QueueSize)
	events := broadcast.New[models.MotionEvent](cfg.QueueSize)
	requests := broadcast.New[models.DoorCommand](cfg.QueueSize)

	registry := service.NewDoorRegistry(bindings, service.RegistryOptions{
		Updates: updates,
		Events:  events,
		Metrics: m,
		Log:     log.Named("registry"),
	})
	relay := service.NewCommandRelay(registry, registry.Identities(), service.RelayOptions{
		Client:     &http.Client{Timeout: cfg.RequestTimeout},
		Port:       cfg.DoorPort,
		Thresholds: cfg.Thresholds,
		Halt:       halt,
		Metrics:    m,
		Log:        log.Named("relay"),
	})
	poller := service.NewButtonPoller(board, pairs, requests, log.Named("buttons"))
	recorder := service.NewEventRecorder(repos.EventRepo, halt, m, log, sinks...)

	// Subscribe before any producer starts.
	requested, tracked, recorded := requests.Subscribe(), updates.Subscribe(), events.Subscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(ctx, requested, tracked) })
	g.Go(func() error { return recorder.Run(ctx, recorded) })
	g.Go(func() error {
		registry.Run(ctx, lister, cfg.RegistryInterval)
		return nil
	})
	g.Go(func() error {
		poller.Run(ctx, cfg.PollInterval)
		return nil
	})

	hub := service.NewHub(registry, relay, cfg.JWT.TTL)
	h := handlers.NewHandler(service.NewHubService(hub, repos, cfg.JWT.SigningKey), m, log)
	serve(ctx, g, cfg.Port, h.InitHubRoutes(), log)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func doorBindings(doors []config.DoorBinding) ([]service.DoorBinding, []service.ButtonPair, error) {
	bindings := make([]service.DoorBinding, 0, len(doors))
	pairs := make([]service.ButtonPair, 0, len(doors))
	for _, d := range doors {
		mac, err := net.ParseMAC(d.MAC)
		if err != nil {
			return nil, nil, fmt.Errorf("door %s: parse mac %q: %w", d.Identity, d.MAC, err)
		}
		bindings = append(bindings, service.DoorBinding{Identity: d.Identity, MAC: mac})
		pairs = append(pairs, service.ButtonPair{
			Door:         d.Identity,
			OpenChannel:  hardware.Channel(d.OpenChannel),
			CloseChannel: hardware.Channel(d.CloseChannel),
		})
	}
	return bindings, pairs, nil
}

// clientLister picks MQTT presence when a broker is configured, else the static list.
func clientLister(cfg *config.Hub, log *logger.Logger) (service.ClientLister, func(), error) {
	if !cfg.MQTT.Enabled() {
		static, err := linklayer.NewStatic(cfg.Clients)
		if err != nil {
			return nil, nil, err
		}
		log.Infow("link_layer_static", "clients", len(cfg.Clients))
		return static, func() {}, nil
	}

	client, err := linklayer.Connect(cfg.MQTT, log)
	if err != nil {
		return nil, nil, err
	}
	presence := linklayer.NewPresence(client, cfg.MQTT.Topic, cfg.MQTT.Interval, log.Named("presence"))
	if err := presence.Start(); err != nil {
		client.Disconnect(250)
		return nil, nil, err
	}
	return presence, func() {
		presence.Stop()
		client.Disconnect(250)
	}, nil
}
