// Command evohome-monitor polls an Evohome heating system for erroneous
// setpoint overrides, alerts via Telegram, publishes events to MQTT, and
// keeps a forensic history in SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sweeney/evohome-monitor/internal/config"
	"github.com/sweeney/evohome-monitor/internal/evohome"
	"github.com/sweeney/evohome-monitor/internal/logging"
	"github.com/sweeney/evohome-monitor/internal/logic"
	"github.com/sweeney/evohome-monitor/internal/metrics"
	"github.com/sweeney/evohome-monitor/internal/mqtt"
	"github.com/sweeney/evohome-monitor/internal/notify"
	"github.com/sweeney/evohome-monitor/internal/status"
	"github.com/sweeney/evohome-monitor/internal/store"
	"github.com/sweeney/evohome-monitor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	check := flag.Bool("check", false, "Test configuration and connectivity, then exit")
	noWeb := flag.Bool("no-web", false, "Run without the web dashboard")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "logging init error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	if *check {
		if err := checkConfiguration(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("configuration check passed")
		return
	}

	if err := run(cfg, *noWeb); err != nil {
		logging.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, noWeb bool) error {
	metrics.Register()

	client, err := evohome.NewClient(evohome.Config{
		Username: cfg.Evohome.Username,
		Password: cfg.Evohome.Password,
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		return fmt.Errorf("init evohome client: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open forensic store: %w", err)
	}
	defer st.Close()

	var sender notify.Sender
	if cfg.Telegram.Enabled {
		telegram, err := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("init telegram: %w", err)
		}
		sender = telegram
	}

	policy := notify.NewPolicy(notify.PolicyConfig{
		Cooldown:     cfg.Cooldown(),
		QuietEnabled: cfg.Alerts.QuietHoursEnabled,
		QuietStart:   cfg.Alerts.QuietHoursStart,
		QuietEnd:     cfg.Alerts.QuietHoursEnd,
	})
	notifier := notify.NewManager(notify.ManagerConfig{
		AlertOnAllOverrides: cfg.Alerts.AlertOnAllOverrides,
		SuspiciousTemps:     cfg.Alerts.SuspiciousTemps,
		DashboardURL:        cfg.Alerts.DashboardURL,
	}, policy, sender, time.Now)

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
		if err != nil {
			// Broker being down must not keep the monitor from starting.
			logging.Error("mqtt connect failed, continuing without it", "error", err)
		} else {
			publisher = real
			mqttStatus = real
			defer real.Close()
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollInterval: cfg.PollInterval(),
		HTTPPort:     cfg.Web.Listen,
		Broker:       cfg.MQTT.Broker,
		DatabasePath: cfg.Storage.DatabasePath,
	})

	if cfg.Web.Enabled && !noWeb {
		srv := web.New(cfg.Web.Listen, tracker, st)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logging.Info("web dashboard listening", "addr", cfg.Web.Listen)
	}

	detectorCfg := logic.DefaultClassifierConfig()
	detectorCfg.PreDropWindowMins = cfg.Detector.PreDropWindowMins
	detectorCfg.StuckThreshold = cfg.Detector.StuckThreshold
	detectorCfg.SuspiciousTemps = cfg.Alerts.SuspiciousTemps

	m := &monitor{
		cfg:        cfg,
		source:     client,
		detector:   logic.NewDetector(detectorCfg),
		store:      st,
		notifier:   notifier,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        time.Now,
	}

	ctx := context.Background()
	logging.Info("evohome monitor starting",
		"poll_interval", cfg.PollInterval(), "database", cfg.Storage.DatabasePath)

	notifier.NotifyStartup(ctx, cfg.PollInterval())
	if publisher != nil {
		m.publishSystem("STARTUP", "")
	}

	// Initial poll so the dashboard has state immediately.
	m.pollOnce(ctx)

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return m.runLoop(ctx, ticker.C, sigCh)
}

// checkConfiguration verifies cloud connectivity, the Telegram transport,
// and the forensic database, then reports what it found.
func checkConfiguration(cfg config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	client, err := evohome.NewClient(evohome.Config{
		Username: cfg.Evohome.Username,
		Password: cfg.Evohome.Password,
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		return err
	}
	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("evohome connection: %w", err)
	}
	fmt.Printf("evohome: connected, %d zones\n", len(snap.Zones))
	for _, zone := range snap.Zones {
		current := "--"
		if zone.CurrentTemp != nil {
			current = fmt.Sprintf("%.1f", *zone.CurrentTemp)
		}
		fmt.Printf("  %s: %s°C → %.1f°C (%s)\n", zone.Name, current, zone.TargetTemp, zone.SetpointMode)
	}

	if cfg.Telegram.Enabled {
		sender, err := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		if err := sender.Send(ctx, notify.Message{Text: "🧪 Test notification from Evohome Monitor"}); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		fmt.Println("telegram: test notification sent")
	} else {
		fmt.Println("telegram: disabled")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	st.Close()
	fmt.Printf("database: initialized at %s\n", cfg.Storage.DatabasePath)
	return nil
}
