package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vaporchat/vapor/internal/infrastructure/configs"
	"github.com/vaporchat/vapor/internal/presentation/handler/chat"
	"github.com/vaporchat/vapor/internal/presentation/handler/health"
	"github.com/vaporchat/vapor/internal/presentation/handler/rooms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Application struct {
	config        configs.Config
	roomsHandler  *rooms.Handler
	chatHandler   *chat.Handler
	healthHandler *health.Handler
	logger        *zap.SugaredLogger
}

func NewApplication(
	config configs.Config,
	roomsHandler *rooms.Handler,
	chatHandler *chat.Handler,
	healthHandler *health.Handler,
	logger *zap.SugaredLogger,
) *Application {
	return &Application{
		config:        config,
		roomsHandler:  roomsHandler,
		chatHandler:   chatHandler,
		healthHandler: healthHandler,
		logger:        logger,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		// The timeout stays off the websocket route; hijacked connections
		// outlive any request deadline.
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", app.roomsHandler.CreateRoomHandler)
			r.Post("/join", app.roomsHandler.JoinRoomHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Get("/ws", app.chatHandler.ServeWS)

	return otelhttp.NewHandler(r, "http.server")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
