package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"funduscam/internal/config"
	"funduscam/internal/imaging"
	"funduscam/internal/logger"
	"funduscam/internal/repository"
	"funduscam/internal/repository/sqlite"
	"funduscam/internal/route"
	"funduscam/internal/service/capture"
	"funduscam/internal/service/storage"
	"funduscam/internal/service/websocket"
	"funduscam/internal/trigger"
	"funduscam/internal/ui"

	"gocv.io/x/gocv"
)

// StdinPort makes the rig read trigger lines from standard input instead of a serial port.
const StdinPort = "-"

type App struct {
	config *config.Config
	logger *logger.Logger

	db          *sqlite.DB
	captureRepo repository.CaptureRepository

	camera  *gocv.VideoCapture
	trigger trigger.Source
	display capture.Display

	store      *storage.SnapshotStore
	session    *capture.Session
	hubService *websocket.HubService
	loop       *capture.Loop
}

// NewApp opens every device the rig needs. Camera and trigger failures are
// fatal; a database failure only disables the capture index.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{config: cfg, logger: log}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Warning("Capture index disabled: %v", err)
	} else {
		a.db = db
		a.captureRepo = sqlite.NewCaptureRepository(db)
	}

	a.trigger, err = openTrigger(cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	a.camera, err = gocv.OpenVideoCapture(cfg.CameraDevice)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open camera %d: %w", cfg.CameraDevice, err)
	}
	if !a.camera.IsOpened() {
		a.close()
		return nil, fmt.Errorf("camera %d is not available", cfg.CameraDevice)
	}

	initial := cfg.MaskConfig()
	if cfg.Headless {
		a.display = ui.NewHeadless(initial)
	} else {
		a.display = ui.NewControls(initial)
	}

	a.store = storage.NewSnapshotStore(cfg, log, a.captureRepo)
	a.session = capture.NewSession(a.store, imaging.NewGlareDetector(cfg.GlareThreshold), log)
	a.hubService = websocket.NewHubService(log)
	a.loop = capture.NewLoop(cfg, a.camera, a.display, a.trigger, a.session, a.hubService, log)

	return a, nil
}

func openTrigger(cfg *config.Config, log *logger.Logger) (trigger.Source, error) {
	if cfg.SerialPort == StdinPort {
		log.Info("Reading trigger lines from stdin")
		return trigger.NewReaderSource(os.Stdin, log), nil
	}
	return trigger.OpenSerial(
		cfg.SerialPort,
		cfg.SerialBaudRate,
		time.Duration(cfg.SerialReadTimeout)*time.Millisecond,
		time.Duration(cfg.SerialWarmup)*time.Millisecond,
		log,
	)
}

// Run drives the capture loop until the exit key, ctx cancellation or a
// camera failure, then releases every device.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hubService.Run(ctx)

	var server *http.Server
	if a.config.Port > 0 {
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", a.config.Port),
			Handler: route.SetupRoutes(a.hubService, a.captureRepo, a.logger),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Preview server failed: %v", err)
			}
		}()
	}

	a.logger.Info("Fundus camera rig started")
	a.logger.Info("Camera: %d, trigger: %s", a.config.CameraDevice, a.config.SerialPort)
	a.logger.Info("Snapshots: %s, composite: %s", a.config.SnapshotDirectory, a.config.MergedImagePath)
	if server != nil {
		a.logger.Info("Preview: http://localhost:%d/api/view", a.config.Port)
	}

	err := a.loop.Run(ctx)

	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warning("Preview server shutdown: %v", err)
		}
		stop()
	}

	a.logger.Info("Captured %d snapshot(s) over %d frames", a.store.Count(), a.loop.Frames())
	return err
}

// close releases camera, trigger, windows and database, then the logger.
func (a *App) close() {
	if a.camera != nil {
		a.camera.Close()
	}
	if a.trigger != nil {
		if err := a.trigger.Close(); err != nil {
			a.logger.Warning("Failed to close trigger: %v", err)
		}
	}
	if a.display != nil {
		a.display.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warning("Failed to close database: %v", err)
		}
	}
	a.logger.Close()
}
