package capture

import (
	"context"
	"errors"
	"fmt"

	"funduscam/internal/config"
	"funduscam/internal/dto"
	"funduscam/internal/imaging"
	"funduscam/internal/logger"
	"funduscam/internal/trigger"

	"gocv.io/x/gocv"
)

var ErrFrameUnavailable = errors.New("no frame available from camera")

// Camera is satisfied by *gocv.VideoCapture.
type Camera interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Display shows frames and owns the operator's mask controls.
type Display interface {
	MaskConfig() imaging.MaskConfig
	Show(frame gocv.Mat)
	ShowComposite(img gocv.Mat)
	// WaitKey pumps GUI events and returns the pressed key or -1.
	WaitKey(delay int) int
	Close() error
}

// Publisher receives frames for remote viewing. It must not block.
type Publisher interface {
	PublishFrame(kind, path string, img gocv.Mat)
}

// Loop is the single-threaded acquisition loop: one iteration per frame.
type Loop struct {
	camera    Camera
	display   Display
	trigger   trigger.Source
	session   *Session
	publisher Publisher
	logger    *logger.Logger

	debouncer    trigger.Debouncer
	exitKey      int
	previewEvery int
	frames       int
}

// NewLoop wires a loop; publisher may be nil.
func NewLoop(config *config.Config, camera Camera, display Display, source trigger.Source, session *Session, publisher Publisher, logger *logger.Logger) *Loop {
	exitKey := -1
	if config.ExitKey != "" {
		exitKey = int(config.ExitKey[0])
	}

	return &Loop{
		camera:       camera,
		display:      display,
		trigger:      source,
		session:      session,
		publisher:    publisher,
		logger:       logger,
		exitKey:      exitKey,
		previewEvery: config.PreviewInterval,
	}
}

// Run iterates until the exit key, context cancellation or a camera failure.
// A partial pair is discarded on exit.
func (l *Loop) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	l.logger.Info("Capture loop started")
	defer func() {
		if n := l.session.Pending(); n > 0 {
			l.logger.Warning("Discarding %d unpaired snapshot(s)", n)
		}
		l.session.Reset()
	}()

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("Capture loop cancelled")
			return nil
		}

		stop, err := l.step(&frame)
		if err != nil {
			return err
		}
		if stop {
			l.logger.Info("Exit key pressed")
			return nil
		}
	}
}

// Frames returns how many frames the loop has processed.
func (l *Loop) Frames() int {
	return l.frames
}

func (l *Loop) step(frame *gocv.Mat) (bool, error) {
	if ok := l.camera.Read(frame); !ok || frame.Empty() {
		l.logger.Error("Failed to read frame from camera")
		return true, ErrFrameUnavailable
	}
	l.frames++

	processed, err := imaging.ApplyMask(*frame, l.display.MaskConfig())
	if err != nil {
		return true, fmt.Errorf("failed to mask frame %d: %w", l.frames, err)
	}
	defer processed.Close()

	l.display.Show(processed)
	if l.publisher != nil && l.previewEvery > 0 && l.frames%l.previewEvery == 0 {
		l.publisher.PublishFrame(dto.KindPreview, "", processed)
	}

	line, received := l.trigger.Poll()
	if l.debouncer.Observe(received && trigger.IsSnap(line)) {
		l.snap(processed)
	}

	key := l.display.WaitKey(1)
	return key >= 0 && key&0xFF == l.exitKey, nil
}

func (l *Loop) snap(processed gocv.Mat) {
	result, err := l.session.Snap(processed)
	if result != nil && l.publisher != nil {
		l.publisher.PublishFrame(dto.KindSnapshot, result.SnapshotPath, processed)
	}
	if err != nil {
		l.logger.Error("Snapshot failed: %v", err)
		return
	}

	if result.Composite == nil {
		return
	}
	defer result.Composite.Image.Close()

	l.display.ShowComposite(result.Composite.Image)
	if l.publisher != nil {
		l.publisher.PublishFrame(dto.KindComposite, result.Composite.Path, result.Composite.Image)
	}
}
