package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"funduscam/internal/config"
	"funduscam/internal/logger"
	"funduscam/internal/model"
	"funduscam/internal/repository"

	"gocv.io/x/gocv"
)

var (
	ErrEmptyFrame  = errors.New("frame is empty")
	ErrWriteFailed = errors.New("image write failed")
	ErrReadFailed  = errors.New("image read failed")
)

// SnapshotStore writes snapshots under a monotonically numbered name and the
// composite under one fixed name, and records every file it writes when a
// repository is configured.
type SnapshotStore struct {
	snapshotDir string
	mergedPath  string
	counter     int
	mu          sync.Mutex
	logger      *logger.Logger
	captureRepo repository.CaptureRepository
}

// NewSnapshotStore creates a store; captureRepo may be nil.
func NewSnapshotStore(config *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository) *SnapshotStore {
	return &SnapshotStore{
		snapshotDir: config.SnapshotDirectory,
		mergedPath:  config.MergedImagePath,
		logger:      logger,
		captureRepo: captureRepo,
	}
}

// SnapshotPath returns the file name used for snapshot number n.
func (s *SnapshotStore) SnapshotPath(n int) string {
	return filepath.Join(s.snapshotDir, fmt.Sprintf("snapshot_%d.png", n))
}

// MergedPath returns the fixed composite path.
func (s *SnapshotStore) MergedPath() string {
	return s.mergedPath
}

// Count returns how many snapshot numbers have been handed out.
func (s *SnapshotStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// SaveSnapshot writes frame as the next numbered snapshot and returns its path.
// The number is consumed even when the write fails.
func (s *SnapshotStore) SaveSnapshot(pairID string, frame gocv.Mat) (string, error) {
	if frame.Empty() {
		return "", ErrEmptyFrame
	}

	s.mu.Lock()
	s.counter++
	seq := s.counter
	s.mu.Unlock()

	if err := os.MkdirAll(s.snapshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	path := s.SnapshotPath(seq)
	if err := s.write(path, frame); err != nil {
		return "", err
	}

	s.logger.Info("Snapshot saved: %s", path)
	s.record(pairID, model.KindSnapshot, seq, path, frame)
	return path, nil
}

// SaveComposite writes frame to the fixed composite path, replacing any
// previous composite.
func (s *SnapshotStore) SaveComposite(pairID string, frame gocv.Mat) (string, error) {
	if frame.Empty() {
		return "", ErrEmptyFrame
	}

	if dir := filepath.Dir(s.mergedPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create composite directory: %w", err)
		}
	}

	if err := s.write(s.mergedPath, frame); err != nil {
		return "", err
	}

	s.logger.Info("Composite saved: %s", s.mergedPath)
	s.record(pairID, model.KindComposite, 0, s.mergedPath, frame)
	return s.mergedPath, nil
}

// Load reads a stored image back as a 3-channel frame.
func (s *SnapshotStore) Load(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrReadFailed, path)
	}
	return img, nil
}

func (s *SnapshotStore) write(path string, frame gocv.Mat) error {
	if ok := gocv.IMWrite(path, frame); !ok {
		return fmt.Errorf("%w: %s", ErrWriteFailed, path)
	}
	return nil
}

// record stores a capture row. Failures are logged; the file is already on disk.
func (s *SnapshotStore) record(pairID, kind string, seq int, path string, frame gocv.Mat) {
	if s.captureRepo == nil {
		return
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	capture := &model.Capture{
		PairID:    pairID,
		Kind:      kind,
		Sequence:  seq,
		Filename:  filepath.Base(path),
		FilePath:  path,
		FileSize:  size,
		Width:     frame.Cols(),
		Height:    frame.Rows(),
		Timestamp: time.Now(),
	}
	if _, err := s.captureRepo.Insert(capture); err != nil {
		s.logger.Error("Error saving capture %s to database: %v", path, err)
	}
}
