package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/catalog"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/internal/storage"
)

// app is what every command shares: the config and the shopper session of
// this machine.
type app struct {
	configName string
	cfg        *config.Config
	out        io.Writer

	session *session.Session
	catalog *catalog.Service
	close   infra.CloseFunc
}

func (a *app) load(c context.Context) context.Context {
	if a.cfg == nil {
		a.cfg = config.Get(c, a.configName)
	}
	logger := log.Get(a.cfg.Application.LogPath, a.cfg.Application.Env).
		With().
		Str(log.KeyAppName, constants.AppStorefrontCli).
		Str(log.KeySessionID, a.cfg.Application.SessionID).
		Logger()
	return logger.WithContext(c)
}

// shopper builds the stores of the configured session on first use.
func (a *app) shopper(c context.Context) (*session.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "cmd shopper").
		Str(log.KeyProcess, "initializing shopper session").
		Logger()

	logger.Debug().Msg("initializing shopper session")
	s, closeStorage, err := infra.NewStorage(c, a.cfg)
	if err != nil {
		return nil, err
	}
	client := inHttp.NewClient(a.cfg.Api)
	sess, err := session.New(c, a.cfg.Application.SessionID, storage.Namespace(s, a.cfg.Application.SessionID), client)
	if err != nil {
		closeStorage()
		return nil, err
	}
	a.session = sess
	a.catalog = catalog.NewService(client)
	a.close = closeStorage
	logger.Debug().Msg("initialized shopper session")
	return sess, nil
}

func (a *app) shutdown() {
	if a.close != nil {
		a.close()
		a.close = nil
	}
}

func (a *app) print(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed encoding output with error=%w", err)
	}
	_, err = fmt.Fprintln(a.out, string(raw))
	return err
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront shopper client and session server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(a.load(cmd.Context()))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configName, "config", constants.AppStorefront, "config file name under env/")
	rootCmd.SetOut(a.out)
	rootCmd.AddCommand(
		newServeCommand(a),
		newCatalogCommand(a),
		newCartCommand(a),
		newWishlistCommand(a),
		newCheckoutCommand(a),
		newOrderCommand(a),
		newAuthCommand(a),
		newAdminCommand(a),
	)
	return rootCmd
}

func Start() {
	logger := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str(log.KeyAppName, constants.AppStorefront).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Debug().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Debug().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)
	a := &app{out: os.Stdout}
	if err := newRootCommand(a).ExecuteContext(c); err != nil {
		a.shutdown()
		logger.Error().Err(err).Msgf("error when executing command=%s", err.Error())
		stop()
		os.Exit(1)
	}
}
