package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/vaporchat/vapor/internal/infrastructure/configs"
	"github.com/vaporchat/vapor/internal/infrastructure/credentials"
	"github.com/vaporchat/vapor/internal/infrastructure/env"
	"github.com/vaporchat/vapor/internal/infrastructure/registry"
	"github.com/vaporchat/vapor/internal/infrastructure/tracing"
	"github.com/vaporchat/vapor/internal/infrastructure/ws"
	"github.com/vaporchat/vapor/internal/presentation/api"
	"github.com/vaporchat/vapor/internal/presentation/handler/chat"
	"github.com/vaporchat/vapor/internal/presentation/handler/health"
	"github.com/vaporchat/vapor/internal/presentation/handler/rooms"
	"go.uber.org/zap"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Environment: env.GetString("ENVIRONMENT", "development"),
			Endpoint:    cfg.Tracing.Endpoint,
		})
		if err != nil {
			logger.Fatalw("failed to init tracer", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	reg := registry.New(credentials.NewHasher(), registry.Options{
		MessageCapacity:    cfg.Rooms.MessageCapacity,
		WipeHistoryOnLeave: cfg.Rooms.WipeHistoryOnLeave,
		IdleExpiry:         cfg.Rooms.IdleExpiry,
	})

	core := ws.NewCore(reg, logger, ws.Config{
		WriteWait:      cfg.WS.WriteWait,
		PongWait:       cfg.WS.PongWait,
		MaxMessageSize: cfg.WS.MaxMessageSize,
		SendBuffer:     cfg.WS.SendBuffer,
	})
	go core.Run()
	defer core.Stop()

	if cfg.Rooms.IdleExpiry > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Rooms.IdleExpiry / 2)
			defer ticker.Stop()
			for range ticker.C {
				if n := reg.EvictIdle(time.Now()); n > 0 {
					logger.Infow("evicted idle rooms", "count", n)
				}
			}
		}()
	}

	roomsHandler := rooms.NewHandler(reg, logger)
	chatHandler := chat.NewHandler(core, logger, cfg.HTTP.AllowedOrigins)
	healthHandler := health.NewHandler()

	app := api.NewApplication(*cfg, roomsHandler, chatHandler, healthHandler, logger)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("rooms", expvar.Func(func() any {
		n, _ := reg.Counts()
		return n
	}))
	expvar.Publish("sessions", expvar.Func(func() any {
		_, n := reg.Counts()
		return n
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
