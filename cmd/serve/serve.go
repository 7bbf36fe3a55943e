// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/aquatrace/aquatrace-go/internal/api"
	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/identify"
	"github.com/aquatrace/aquatrace-go/internal/logging"
	"github.com/aquatrace/aquatrace-go/internal/observability"
	"github.com/aquatrace/aquatrace-go/internal/security"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the AquaTrace web server",
		Long:  "Start the HTTP API serving uploads, identification and the species catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.WebServer.Debug, "webdebug", viper.GetBool("webserver.debug"), "Enable web server debug logging")
	cmd.Flags().BoolVar(&settings.Identify.Vision.Enabled, "vision", viper.GetBool("identify.vision.enabled"), "Enable the Vision API fallback identifier")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

// runServer wires the collaborators and runs the HTTP server until the
// context is cancelled by a signal.
func runServer(ctx context.Context, settings *conf.Settings) error {
	log := logging.ForService("serve")

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no datastore enabled, configure output.sqlite or output.mysql").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close datastore", "error", err)
		}
	}()

	catalog, err := species.New(settings.Species.CatalogPath)
	if err != nil {
		return err
	}
	log.Info("species catalog loaded", "species", catalog.Len())

	identifier := buildIdentifier(settings, catalog)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	_, err = api.New(e, store, settings, catalog, identifier,
		security.NewSessionManager(settings),
		security.NewTokenIssuer(settings),
		security.NewLocalVerifier(store),
		metrics)
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		addr := ":" + settings.WebServer.Port
		log.Info("starting web server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryHTTP).
			Context("operation", "serve").
			Build()
	}
	return nil
}

// buildIdentifier assembles the identification pipeline: the filename
// heuristic always runs first, with the Vision API as fallback when enabled.
func buildIdentifier(settings *conf.Settings, catalog *species.Catalog) identify.Identifier {
	stub := identify.NewStub(catalog)
	if !settings.Identify.Vision.Enabled {
		return stub
	}

	vision := identify.NewVisionClient(&settings.Identify.Vision, catalog, nil)
	return identify.NewChain(stub, vision, settings.Identify.Threshold)
}
