package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/storefront/catalog"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/shop/internal/controller"
)

// NewRouter wires every shop route onto one router.
func NewRouter(registry *session.Registry, catalogService *catalog.Service) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.AppShopServer),
		middleware.Logging,
		middleware.RecoverPanic,
	)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	shopper := router.NewRoute().Subrouter()
	shopper.Use(middleware.Session)
	controller.AttachCatalogController(shopper, catalogService)
	controller.AttachCartController(shopper, registry, catalogService)
	controller.AttachWishlistController(shopper, registry, catalogService)
	controller.AttachCheckoutController(shopper, registry)
	controller.AttachOrderController(shopper, registry)
	controller.AttachAuthController(shopper, registry)
	controller.AttachAdminController(shopper, registry)

	return router
}

func RunShopServer(c context.Context, cfg *config.Config) {
	c, span := otel.Tracer.Start(c, "RunShopServer")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppShopServer).
		Str(log.KeyTag, "main RunShopServer").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, constants.AppShopServer, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger = logger.With().Str(log.KeyProcess, "shutting down otel").Logger()
		logger.Info().Msg("shutting down otel")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otel.ShutdownOtel(shutdownCtx, otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing storage").Logger()
	logger.Info().Msg("initializing storage")
	c = logger.WithContext(c)
	store, closeStorage, err := infra.NewStorage(c, cfg)
	if err != nil {
		err = fmt.Errorf("failed initializing storage with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger = logger.With().Str(log.KeyProcess, "shutting down storage").Logger()
		logger.Info().Msg("shutting down storage")
		closeStorage()
		logger.Info().Msg("shutdown storage")
	}()
	logger.Info().Msg("initialized storage")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	client := inHttp.NewClient(cfg.Api)
	registry := session.NewRegistry(store, client, cfg.Application.SessionTTL)
	router := NewRouter(registry, catalog.NewService(client))
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	c, stop := context.WithCancel(c)
	defer stop()
	go func() {
		defer stop()
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("error=%w occured while server is running", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown server")
	}()

	<-c.Done()
	logger = logger.With().Str(log.KeyProcess, "shutting down http server").Logger()
	logger.Info().Msg("received interuption signal shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}
