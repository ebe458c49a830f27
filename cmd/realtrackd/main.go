// Command realtrackd runs the development backend: the realtrack REST API
// served from a file-backed in-memory store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celerix-dev/realtrack/internal/api"
	"github.com/celerix-dev/realtrack/internal/config"
	"github.com/celerix-dev/realtrack/internal/engine"
	"github.com/celerix-dev/realtrack/internal/logging"
	"github.com/celerix-dev/realtrack/internal/vault"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

var (
	flagConfig      = pflag.StringP("config", "c", "", "Load configuration from the given .yaml or .json file")
	flagPort        = pflag.IntP("port", "p", 0, "Listen on the given port")
	flagDataDir     = pflag.StringP("data-dir", "d", "", "Keep table files in the given directory")
	flagSeed        = pflag.String("seed", "", "Import the given seed file when the store is empty")
	flagLogProvider = pflag.String("log-provider", "", "Log with the given provider (none, jellog, std)")
	flagLogFile     = pflag.String("log-file", "", "Also write logs to the given file")
	flagTLS         = pflag.Bool("tls", false, "Serve HTTPS with a generated self-signed certificate")
)

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "realtrackd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, _ := logging.ParseProvider(cfg.LogProvider)
	log, err := logging.New(provider, "realtrackd", cfg.LogFile)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	persister, err := engine.NewPersistence(cfg.DataDir, engine.WithLogger(log))
	if err != nil {
		return fmt.Errorf("initialize persistence: %w", err)
	}

	initialData, err := persister.LoadAll()
	if err != nil {
		log.Warnf("Could not load existing data: %v", err)
	}

	store := engine.NewMemStore(initialData, persister, engine.WithLogger(log))
	log.Infof("Engine started. Loaded %d tables from %s", len(initialData), cfg.DataDir)

	if cfg.SeedFile != "" {
		if err := seedIfEmpty(store, cfg.SeedFile, log.Infof); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(&api.Handler{Store: store, Log: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.TLS {
		log.Debug("Generating self-signed certificate")
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		srv.TLSConfig = vault.ServerConfig(cert)
	}

	serveErr := make(chan error, 1)
	go func() {
		scheme := "http"
		if srv.TLSConfig != nil {
			scheme = "https"
		}
		log.Infof("API listening on %s://localhost%s", scheme, srv.Addr)

		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			store.Wait()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-sigChan:
		log.Info("Shutdown signal received. Finalizing disk writes...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("Shutdown: %v", err)
	}

	store.Wait()
	log.Info("Persistence complete. Exiting.")
	return nil
}

// loadConfig resolves the server configuration. Flags that were set win over
// the config file and environment.
func loadConfig() (config.Server, error) {
	f, err := config.Load(*flagConfig)
	if err != nil {
		return config.Server{}, err
	}
	cfg := f.Server

	if pflag.Lookup("port").Changed {
		cfg.Port = *flagPort
	}
	if pflag.Lookup("data-dir").Changed {
		cfg.DataDir = *flagDataDir
	}
	if pflag.Lookup("seed").Changed {
		cfg.SeedFile = *flagSeed
	}
	if pflag.Lookup("log-provider").Changed {
		cfg.LogProvider = *flagLogProvider
	}
	if pflag.Lookup("log-file").Changed {
		cfg.LogFile = *flagLogFile
	}
	if pflag.Lookup("tls").Changed {
		cfg.TLS = *flagTLS
	}

	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func seedIfEmpty(store *engine.MemStore, path string, logf func(string, ...interface{})) error {
	if len(store.Resources()) > 0 {
		logf("Store already has data; skipping seed file %s", path)
		return nil
	}
	seed, err := engine.LoadSeed(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	n, err := engine.Import(store, seed)
	if err != nil {
		return fmt.Errorf("import seed: %w", err)
	}
	logf("Imported %d records from %s", n, path)
	return nil
}
