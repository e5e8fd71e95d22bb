package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sensor-endpoint/config"
	"sensor-endpoint/internal/alarm"
	"sensor-endpoint/internal/api"
	"sensor-endpoint/internal/db"
	"sensor-endpoint/internal/device"
	"sensor-endpoint/internal/dispatch"
	"sensor-endpoint/internal/logger"
	"sensor-endpoint/internal/mqtt"
	"sensor-endpoint/internal/mw"
	"sensor-endpoint/internal/sampler"
	"sensor-endpoint/internal/store"
	"sensor-endpoint/internal/threshold"
)

// restarter ends the process so the supervisor can start it again.
type restarter struct {
	cancel    context.CancelFunc
	requested atomic.Bool
}

func (r *restarter) Restart() {
	r.requested.Store(true)
	r.cancel()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("configuration loaded", zap.String("path", configPath))

	code := run(cfg, log)
	_ = log.Sync()
	os.Exit(code)
}

func run(cfg *config.Config, log *zap.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rs := &restarter{cancel: cancel}

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Error("failed to initialize database", zap.Error(err))
		return 1
	}
	appStore := store.NewGormStore(gormDB)
	log.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	seed, err := identityFromConfig(cfg.Device)
	if err != nil {
		log.Error("invalid device identity in configuration", zap.Error(err))
		return 1
	}
	identity, err := store.EnsureIdentity(ctx, appStore, seed)
	if err != nil {
		log.Error("failed to load device identity", zap.Error(err))
		return 1
	}

	configStore, err := store.NewConfigStore(ctx, appStore, cfg.Device.Thresholds, log)
	if err != nil {
		log.Error("failed to load thresholds", zap.Error(err))
		return 1
	}
	eventLog, err := store.NewEventLog(ctx, appStore, cfg.LogStore.MaxEntries)
	if err != nil {
		log.Error("failed to load event log", zap.Error(err))
		return 1
	}

	pool, mqttClient := newAlarmPool(cfg, appStore, identity.SerialNumber, log)
	if mqttClient != nil {
		defer mqttClient.Disconnect()
	}

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	snapshotCache := cache.New(cacheTTL, 2*cacheTTL)
	configStore.OnChange(func(threshold.Config) { mw.Invalidate(snapshotCache) })
	eventLog.OnClear(func() { mw.Invalidate(snapshotCache) })
	eventLog.OnAppend(func(e store.Entry) {
		mw.Invalidate(snapshotCache)
		if alarm.Notable(e.Event) {
			pool.Dispatch(alarm.New(identity.SerialNumber, e))
		}
	})

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	start(func() {
		pool.Start(ctx)
		pool.Wait()
	})

	eventLog.Append(store.EventTimeSet)
	eventLog.Append(store.EventNewTime)
	eventLog.Append(store.EventStartup)

	writeBack := store.NewWriteBack(configStore, eventLog, cfg.LogStore.FlushInterval, log)
	start(func() { writeBack.Run(ctx) })

	temps := sampler.NewService(cfg.Sampler, log)
	start(func() { temps.Run(ctx) })

	handler := dispatch.NewHandler(configStore, eventLog, temps, identity, log)
	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateBurst)

	tcpServer := dispatch.NewServer(handler, dispatch.Options{
		Addr:            fmt.Sprintf(":%d", cfg.Server.TCPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		DrainTimeout:    cfg.Server.DrainTimeout,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		Limiter:         limiter,
	}, writeBack, rs, log)
	start(func() {
		if err := tcpServer.ListenAndServe(ctx); err != nil {
			log.Error("sensor endpoint failed", zap.Error(err))
			cancel()
		}
	})

	router := api.NewRouter(
		api.NewHandler(appStore, handler, pushOptions(cfg.Alarm.Push), log),
		mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateBurst),
		snapshotCache,
		cacheTTL,
		log,
	)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.APIPort),
		Handler: router,
	}
	start(func() {
		log.Info("management API starting", zap.Int("port", cfg.Server.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("management API failed", zap.Error(err))
			cancel()
		}
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("management API shutdown failed", zap.Error(err))
	}
	wg.Wait()

	if rs.requested.Load() {
		log.Info("restarting", zap.Int("exit_code", cfg.Server.RestartExitCode))
		return cfg.Server.RestartExitCode
	}
	log.Info("stopped")
	return 0
}

func identityFromConfig(d config.DeviceConfig) (device.Identity, error) {
	mac, err := device.ParseMAC(d.MACAddress)
	if err != nil {
		return device.Identity{}, err
	}
	date, err := device.ParseDate(d.ManufactureDate)
	if err != nil {
		return device.Identity{}, err
	}
	id := device.Identity{
		Model:           d.Model,
		Manufacturer:    d.Manufacturer,
		SerialNumber:    d.SerialNumber,
		ManufactureDate: date,
		MAC:             mac,
		CountryCode:     d.CountryCode,
	}
	return id, id.Validate()
}

func pushOptions(p config.PushConfig) *webpush.Options {
	if !p.Enabled() {
		return nil
	}
	return &webpush.Options{
		VAPIDPublicKey:  p.PublicKey,
		VAPIDPrivateKey: p.PrivateKey,
		Subscriber:      p.Subject,
		TTL:             p.TTL,
	}
}

// newAlarmPool wires every configured alarm channel. An unreachable broker
// disables MQTT alarms rather than failing startup.
func newAlarmPool(cfg *config.Config, s store.Store, serial string, log *zap.Logger) (*alarm.WorkerPool, *mqtt.Client) {
	var senders []alarm.Sender
	var client *mqtt.Client

	if cfg.Alarm.MQTT.Enabled {
		c, err := mqtt.NewClient(&cfg.Alarm.MQTT, log)
		if err != nil {
			log.Warn("MQTT alarms disabled", zap.Error(err))
		} else {
			client = c
			senders = append(senders, alarm.NewMQTTSender(c, cfg.Alarm.MQTT.Topic, serial))
		}
	}
	if opts := pushOptions(cfg.Alarm.Push); opts != nil {
		senders = append(senders, alarm.NewWebPushSender(s, opts, log))
	}
	if len(senders) == 0 {
		log.Info("no alarm channels configured")
	}

	return alarm.NewWorkerPool(cfg.Alarm.Workers, senders, log), client
}
