package otel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/contrib/propagators/ot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
)

type ShutdownFunc func(context.Context) error

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
		jaeger.Jaeger{},
		ot.OT{},
	)
}

// InitOtelSdk installs the global propagator and, when enabled, the OTLP
// tracer and meter providers. The returned funcs must be passed to
// ShutdownOtel.
func InitOtelSdk(
	c context.Context,
	serviceName string,
	cfg config.Otel,
) (shutdownFuncs []ShutdownFunc, err error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "otel InitOtelSdk").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing propagator").Logger()
	logger.Info().Msg("initializing propagator")
	otel.SetTextMapPropagator(newPropagator())
	logger.Info().Msg("initialized propagator")

	if !cfg.Enabled {
		logger.Info().Msg("otel exporters disabled")
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	logger = logger.With().Str(log.KeyProcess, "initializing tracerProvider").Logger()
	logger.Info().Msg("initializing tracerProvider")
	c = logger.WithContext(c)
	tracerProvider, err := initTracerProvider(c, endpoint, serviceName)
	if err != nil {
		err = fmt.Errorf("failed initializing tracerProvider with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	otel.SetTracerProvider(tracerProvider)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	logger.Info().Msg("initialized tracerProvider")

	logger = logger.With().Str(log.KeyProcess, "initializing meterProvider").Logger()
	logger.Info().Msg("initializing meterProvider")
	meterProvider, err := initMeterProvider(c, endpoint)
	if err != nil {
		err = fmt.Errorf("failed initializing meterProvider with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return shutdownFuncs, err
	}
	otel.SetMeterProvider(meterProvider)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	logger.Info().Msg("initialized meterProvider")

	return shutdownFuncs, nil
}

func ShutdownOtel(c context.Context, shutdownFuncs []ShutdownFunc) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, shutdown := range shutdownFuncs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := shutdown(c); err != nil {
				mu.Lock()
				errs = errors.Join(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}
