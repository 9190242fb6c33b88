package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roman-kulish/flight-log-viewer/internal/decode"
	"github.com/roman-kulish/flight-log-viewer/internal/scene"
	"github.com/roman-kulish/flight-log-viewer/internal/session"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
	"github.com/roman-kulish/flight-log-viewer/internal/store"
)

const shutdownTimeout = 5 * time.Second

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	backend := createStorage(config, logger)
	defer backend.Close()

	prefs, err := createPrefs(config)
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}

	renderer := createRenderer(config, prefs)

	snapshot, err := scene.NewSnapshotRenderer(scene.SnapshotConfig{
		FontPath: config.Renderer.FontPath,
	})
	if err != nil {
		return fmt.Errorf("creating snapshot renderer: %w", err)
	}

	st := store.New(backend,
		store.WithLogger(logger),
		store.WithPointBudget(config.Storage.PointBudget))
	st.LoadFlights(ctx)

	srv := &http.Server{
		Addr:    config.Server.ListenAddr,
		Handler: newServer(st, renderer, snapshot, config.Server.FileDialog, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", config.Server.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func createStorage(config *Config, logger *slog.Logger) *storage.SqliteStore {
	options := []func(*storage.SqliteStore){
		storage.WithLogger(logger),
	}
	if config.Decoder.Command != "" {
		options = append(options, storage.WithDecoder(
			decode.NewRunner(config.Decoder.Command, config.Decoder.Args, decode.WithLogger(logger))))
	}
	if config.Storage.MaxBatchSize > 0 {
		options = append(options, storage.WithBatchSize(config.Storage.MaxBatchSize))
	}
	return storage.NewSqliteStore(config.Storage.DBPath, options...)
}

func createPrefs(config *Config) (*session.Store, error) {
	if config.Settings.PrefsPath == "" {
		return session.New(), nil
	}
	return session.Open(config.Settings.PrefsPath)
}

func createRenderer(config *Config, prefs *session.Store) *scene.Renderer {
	var options []func(*scene.Renderer)
	if config.Renderer.Basemap != "" {
		options = append(options, scene.WithBasemap(scene.Basemap(config.Renderer.Basemap)))
	}
	if config.Renderer.Subdivisions > 0 {
		options = append(options, scene.WithSubdivisions(config.Renderer.Subdivisions))
	}
	return scene.NewRenderer(prefs, options...)
}
