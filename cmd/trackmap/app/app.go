package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/roman-kulish/flight-log-viewer/internal/scene"
	"github.com/roman-kulish/flight-log-viewer/internal/session"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	detail, err := store.FlightDetail(ctx, config.FlightID, config.PointBudget)
	if err != nil {
		return err
	}

	logger.Info("rendering track",
		slog.Group("flight",
			slog.Int64("id", detail.Flight.ID),
			slog.String("file", detail.Flight.FileName),
			slog.Int("points", len(detail.Track)),
		))

	var options []func(*scene.Renderer)
	if config.Basemap != "" {
		options = append(options, scene.WithBasemap(scene.Basemap(config.Basemap)))
	}

	renderer := scene.NewRenderer(session.New(), options...)
	renderer.SetView3D(!config.Flat)

	snapshot, err := scene.NewSnapshotRenderer(scene.SnapshotConfig{
		FontPath: config.FontPath,
	})
	if err != nil {
		return fmt.Errorf("creating snapshot renderer: %w", err)
	}

	img, err := snapshot.Render(renderer.Compose(detail), detail.Flight)
	if err != nil {
		return fmt.Errorf("rendering track: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	logger.Info("writing image",
		slog.String("destination", config.OutputFile),
		slog.String("format", string(config.Format)))

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
