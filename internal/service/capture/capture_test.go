package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"funduscam/internal/config"
	"funduscam/internal/dto"
	"funduscam/internal/imaging"
	"funduscam/internal/logger"

	"gocv.io/x/gocv"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

// memStore keeps snapshots in memory.
type memStore struct {
	images     map[string]gocv.Mat
	snapshots  int
	composites int
	failSave   bool
}

func newMemStore(t *testing.T) *memStore {
	s := &memStore{images: make(map[string]gocv.Mat)}
	t.Cleanup(func() {
		for _, m := range s.images {
			m.Close()
		}
	})
	return s
}

func (s *memStore) SaveSnapshot(pairID string, frame gocv.Mat) (string, error) {
	if s.failSave {
		return "", errors.New("disk full")
	}
	s.snapshots++
	path := fmt.Sprintf("mem/snapshot_%d.png", s.snapshots)
	s.images[path] = frame.Clone()
	return path, nil
}

func (s *memStore) SaveComposite(pairID string, frame gocv.Mat) (string, error) {
	s.composites++
	return "mem/merged_image.jpg", nil
}

func (s *memStore) Load(path string) (gocv.Mat, error) {
	img, ok := s.images[path]
	if !ok {
		return gocv.NewMat(), fmt.Errorf("missing %s", path)
	}
	return img.Clone(), nil
}

type reading struct {
	line string
	ok   bool
}

// scriptedSource returns one reading per Poll, then nothing.
type scriptedSource struct {
	readings []reading
	i        int
}

func (s *scriptedSource) Poll() (string, bool) {
	if s.i >= len(s.readings) {
		return "", false
	}
	r := s.readings[s.i]
	s.i++
	return r.line, r.ok
}

func (s *scriptedSource) Close() error { return nil }

type fakeCamera struct {
	frames int
	reads  int
}

func (c *fakeCamera) Read(m *gocv.Mat) bool {
	if c.reads >= c.frames {
		return false
	}
	c.reads++
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 40, 40, gocv.MatTypeCV8UC3)
	img.CopyTo(m)
	img.Close()
	return true
}

func (c *fakeCamera) Close() error { return nil }

type fakeDisplay struct {
	cfg        imaging.MaskConfig
	keys       map[int]int // iteration -> key
	waits      int
	shown      int
	composites int
	lastSize   [2]int
}

func (d *fakeDisplay) MaskConfig() imaging.MaskConfig { return d.cfg }

func (d *fakeDisplay) Show(frame gocv.Mat) {
	d.shown++
	d.lastSize = [2]int{frame.Cols(), frame.Rows()}
}

func (d *fakeDisplay) ShowComposite(img gocv.Mat) { d.composites++ }

func (d *fakeDisplay) WaitKey(delay int) int {
	d.waits++
	if k, ok := d.keys[d.waits]; ok {
		return k
	}
	return -1
}

func (d *fakeDisplay) Close() error { return nil }

type fakePublisher struct {
	kinds []string
}

func (p *fakePublisher) PublishFrame(kind, path string, img gocv.Mat) {
	p.kinds = append(p.kinds, kind)
}

func snap() reading   { return reading{"snap\r", true} }
func noise() reading  { return reading{"hello", true} }
func silent() reading { return reading{} }

type harness struct {
	store     *memStore
	session   *Session
	display   *fakeDisplay
	camera    *fakeCamera
	publisher *fakePublisher
	loop      *Loop
}

func newHarness(t *testing.T, frames int, readings []reading) *harness {
	t.Helper()
	l := newTestLogger(t)
	h := &harness{
		store:     newMemStore(t),
		display:   &fakeDisplay{cfg: imaging.MaskConfig{SquareSize: 20, SquareX: 5, SquareY: 5, CircleRadius: 8}},
		camera:    &fakeCamera{frames: frames},
		publisher: &fakePublisher{},
	}
	h.session = NewSession(h.store, imaging.NewGlareDetector(imaging.DefaultBrightnessThreshold), l)
	cfg := &config.Config{ExitKey: "q", PreviewInterval: 2}
	h.loop = NewLoop(cfg, h.camera, h.display, &scriptedSource{readings: readings}, h.session, h.publisher, l)
	return h
}

func TestSession_PairProducesCompositeAndResets(t *testing.T) {
	store := newMemStore(t)
	s := NewSession(store, imaging.NewGlareDetector(imaging.DefaultBrightnessThreshold), newTestLogger(t))
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(50, 60, 70, 0), 10, 10, gocv.MatTypeCV8UC3)
	defer frame.Close()

	first, err := s.Snap(frame)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}
	if first.Composite != nil || s.Pending() != 1 {
		t.Fatalf("Expected pending=1 and no composite, got %d / %v", s.Pending(), first.Composite)
	}
	pairID := s.PairID()
	if pairID == "" {
		t.Fatal("Expected a pair id while collecting")
	}

	second, err := s.Snap(frame)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}
	if second.Composite == nil {
		t.Fatal("Expected composite after second snapshot")
	}
	defer second.Composite.Image.Close()

	if second.Composite.PairID != pairID {
		t.Errorf("Composite pair id %s, expected %s", second.Composite.PairID, pairID)
	}
	if s.Pending() != 0 || s.PairID() != "" {
		t.Errorf("Expected empty set after composite, pending=%d", s.Pending())
	}
	if v := second.Composite.Image.GetVecbAt(0, 0); v[0] != 50 || v[1] != 60 || v[2] != 70 {
		t.Errorf("Unexpected composite pixel %v", v)
	}

	third, err := s.Snap(frame)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}
	if third.Composite != nil || s.Pending() != 1 {
		t.Errorf("Third snapshot should start a fresh set, pending=%d", s.Pending())
	}
	if s.PairID() == pairID {
		t.Error("Fresh set should get a new pair id")
	}
}

func TestSession_SaveFailureLeavesSetUnchanged(t *testing.T) {
	store := newMemStore(t)
	s := NewSession(store, imaging.NewGlareDetector(imaging.DefaultBrightnessThreshold), newTestLogger(t))
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	s.Snap(frame)
	store.failSave = true
	if _, err := s.Snap(frame); err == nil {
		t.Fatal("Expected save error")
	}
	if s.Pending() != 1 {
		t.Errorf("Expected pending=1 after failed save, got %d", s.Pending())
	}
}

func TestSession_MismatchedPairResets(t *testing.T) {
	store := newMemStore(t)
	s := NewSession(store, imaging.NewGlareDetector(imaging.DefaultBrightnessThreshold), newTestLogger(t))
	a := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer a.Close()
	b := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 6, 6, gocv.MatTypeCV8UC3)
	defer b.Close()

	s.Snap(a)
	_, err := s.Snap(b)
	if !errors.Is(err, imaging.ErrExtentMismatch) {
		t.Errorf("Expected ErrExtentMismatch, got %v", err)
	}
	if s.Pending() != 0 {
		t.Errorf("Expected set reset after failed merge, pending=%d", s.Pending())
	}
	if store.composites != 0 {
		t.Error("No composite should be saved for a mismatched pair")
	}
}

func TestLoop_ThreeTriggersOneComposite(t *testing.T) {
	h := newHarness(t, 6, []reading{snap(), silent(), snap(), noise(), snap(), silent()})

	err := h.loop.Run(context.Background())
	if !errors.Is(err, ErrFrameUnavailable) {
		t.Fatalf("Expected ErrFrameUnavailable when frames run out, got %v", err)
	}

	if h.store.snapshots != 3 {
		t.Errorf("Expected 3 snapshots, got %d", h.store.snapshots)
	}
	if h.store.composites != 1 || h.display.composites != 1 {
		t.Errorf("Expected exactly one composite, got store=%d display=%d", h.store.composites, h.display.composites)
	}
	if h.loop.Frames() != 6 {
		t.Errorf("Expected 6 frames, got %d", h.loop.Frames())
	}
	if h.display.lastSize != [2]int{20, 20} {
		t.Errorf("Expected masked 20x20 frames, got %v", h.display.lastSize)
	}
	// The partial third pair is discarded on exit.
	if h.session.Pending() != 0 {
		t.Errorf("Expected pending set discarded on exit, got %d", h.session.Pending())
	}
}

func TestLoop_ContinuousSnapAcceptedOnce(t *testing.T) {
	h := newHarness(t, 5, []reading{snap(), snap(), snap(), snap(), snap()})

	h.loop.Run(context.Background())

	if h.store.snapshots != 1 {
		t.Errorf("Expected exactly 1 snapshot, got %d", h.store.snapshots)
	}
}

func TestLoop_SilentIterationRearms(t *testing.T) {
	h := newHarness(t, 3, []reading{snap(), silent(), snap()})

	h.loop.Run(context.Background())

	if h.store.snapshots != 2 || h.store.composites != 1 {
		t.Errorf("Expected 2 snapshots and 1 composite, got %d / %d", h.store.snapshots, h.store.composites)
	}
}

func TestLoop_ExitKeyStops(t *testing.T) {
	h := newHarness(t, 100, nil)
	h.display.keys = map[int]int{3: 'q'}

	if err := h.loop.Run(context.Background()); err != nil {
		t.Fatalf("Expected clean exit, got %v", err)
	}
	if h.camera.reads != 3 {
		t.Errorf("Expected 3 frames before exit, got %d", h.camera.reads)
	}
}

func TestLoop_OtherKeysIgnored(t *testing.T) {
	h := newHarness(t, 4, nil)
	h.display.keys = map[int]int{1: 'x', 2: 0x100 | 'w'}

	if err := h.loop.Run(context.Background()); !errors.Is(err, ErrFrameUnavailable) {
		t.Fatalf("Expected loop to run until frames end, got %v", err)
	}
}

func TestLoop_ContextCancelStops(t *testing.T) {
	h := newHarness(t, 100, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.loop.Run(ctx); err != nil {
		t.Fatalf("Expected nil on cancellation, got %v", err)
	}
	if h.camera.reads != 0 {
		t.Errorf("Expected no frames after cancellation, got %d", h.camera.reads)
	}
}

func TestLoop_PublishesPreviewSnapshotAndComposite(t *testing.T) {
	h := newHarness(t, 4, []reading{snap(), silent(), snap(), silent()})

	h.loop.Run(context.Background())

	counts := map[string]int{}
	for _, k := range h.publisher.kinds {
		counts[k]++
	}
	if counts[dto.KindPreview] != 2 {
		t.Errorf("Expected 2 previews (every 2nd frame), got %d", counts[dto.KindPreview])
	}
	if counts[dto.KindSnapshot] != 2 || counts[dto.KindComposite] != 1 {
		t.Errorf("Unexpected published kinds: %v", counts)
	}
}

type failingMerger struct{}

func (failingMerger) Merge(images []gocv.Mat) (gocv.Mat, error) {
	return gocv.NewMat(), errors.New("merge failed")
}

func TestLoop_PublishesSnapshotWhenMergeFails(t *testing.T) {
	h := newHarness(t, 4, nil)
	l := newTestLogger(t)
	h.session = NewSession(h.store, failingMerger{}, l)
	cfg := &config.Config{ExitKey: "q"}
	h.loop = NewLoop(cfg, h.camera, h.display, &scriptedSource{readings: []reading{snap(), silent(), snap(), silent()}}, h.session, h.publisher, l)

	h.loop.Run(context.Background())

	counts := map[string]int{}
	for _, k := range h.publisher.kinds {
		counts[k]++
	}
	if h.store.snapshots != 2 {
		t.Fatalf("Expected 2 snapshots on disk, got %d", h.store.snapshots)
	}
	if counts[dto.KindSnapshot] != 2 {
		t.Errorf("Expected both saved snapshots published, got %d", counts[dto.KindSnapshot])
	}
	if counts[dto.KindComposite] != 0 || h.display.composites != 0 {
		t.Errorf("No composite expected after a failed merge, got %v", counts)
	}
	if h.session.Pending() != 0 {
		t.Errorf("Expected set reset after failed merge, pending=%d", h.session.Pending())
	}
}
