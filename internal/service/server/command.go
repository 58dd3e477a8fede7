package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	api "github.com/scituinsk/BE-Smart-Farming/internal/api/http"
	"github.com/scituinsk/BE-Smart-Farming/internal/api/ws"
	"github.com/scituinsk/BE-Smart-Farming/internal/auth"
	"github.com/scituinsk/BE-Smart-Farming/internal/bridge"
	"github.com/scituinsk/BE-Smart-Farming/internal/config"
	"github.com/scituinsk/BE-Smart-Farming/internal/hub"
	"github.com/scituinsk/BE-Smart-Farming/internal/logger"
	"github.com/scituinsk/BE-Smart-Farming/internal/repository"
	alarmrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/alarm"
	devicerepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/device"
	userrepo "github.com/scituinsk/BE-Smart-Farming/internal/repository/user"
	"github.com/scituinsk/BE-Smart-Farming/internal/service/scheduler"
	"github.com/scituinsk/BE-Smart-Farming/internal/taskqueue"
)

// shutdownTimeout bounds how long in-flight HTTP requests may finish.
const shutdownTimeout = 10 * time.Second

// Options controls the farming-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
}

// Run starts the whole server and blocks until the context is canceled:
// the HTTP/websocket API, the task queue workers, the due-alarm sweep and,
// when a broker is configured, the MQTT bridge.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "farming-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	db, err := repository.Open(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: settings.RedisAddress})
	defer redisClient.Close() //nolint:errcheck // process teardown

	alarms := alarmrepo.NewGormRepository(db)
	devices := devicerepo.NewGormRepository(db)
	users := userrepo.NewGormRepository(db)

	broadcast := hub.New()

	queue := taskqueue.NewRedisQueue(redisClient)

	sched := scheduler.New(
		alarms, devices, queue, broadcast,
		scheduler.NewRedisFireGuard(redisClient), settings.Location())

	queue.Register(scheduler.TaskAlarmFire, sched.HandleFireTask)

	go queue.RunWorkers(ctx, settings.QueueWorkers, settings.QueuePollInterval)

	sched.ArmAll(ctx)

	go sched.RunSweep(ctx, settings.SweepInterval)

	var control api.ControlPublisher

	if settings.MQTTBroker != "" {
		b := bridge.New(settings.MQTTBroker, broadcast)
		if err := b.Connect(ctx); err != nil {
			// The bridge keeps retrying in the background, commands fail
			// until it gets through.
			logger.WarnKV(ctx, "MQTT broker unreachable", "broker", settings.MQTTBroker, "error", err)
		}

		defer b.Close()

		control = b
	}

	tokens := auth.NewTokenManager(settings.JWTSecret, settings.TokenTTL)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	server := api.NewServer(
		users, devices, alarms, sched, tokens,
		ws.NewHandler(devices, broadcast, tokens), control)
	server.RegisterRoutes(app)

	logger.InfoKV(ctx, "Farming server listening",
		"listen_address", listenAddress,
		"database", settings.DatabasePath,
		"timezone", settings.Timezone)

	// Done channel is closed after Shutdown finishes so we block until the
	// server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.ErrorKV(ctx, "Shutdown did not finish cleanly", "error", err)
		}

		close(done)
	}()

	if err := app.Listen(listenAddress); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve HTTP on %s: %w", listenAddress, err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}
