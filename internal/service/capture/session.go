package capture

import (
	"fmt"

	"funduscam/internal/logger"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// PairSize is the number of snapshots merged into one composite.
const PairSize = 2

// Store persists snapshots and composites.
type Store interface {
	SaveSnapshot(pairID string, frame gocv.Mat) (string, error)
	SaveComposite(pairID string, frame gocv.Mat) (string, error)
	Load(path string) (gocv.Mat, error)
}

// Merger turns a set of snapshots into one composite.
type Merger interface {
	Merge(images []gocv.Mat) (gocv.Mat, error)
}

// Composite is a merged pair. The caller owns Image.
type Composite struct {
	PairID string
	Path   string
	Image  gocv.Mat
}

// SnapResult describes one accepted trigger.
type SnapResult struct {
	SnapshotPath string
	Composite    *Composite // nil until the pair is complete
}

// Session accumulates snapshot paths and merges them once PairSize is reached.
type Session struct {
	store     Store
	merger    Merger
	logger    *logger.Logger
	pairID    string
	snapshots []string
}

func NewSession(store Store, merger Merger, logger *logger.Logger) *Session {
	return &Session{
		store:     store,
		merger:    merger,
		logger:    logger,
		snapshots: make([]string, 0, PairSize),
	}
}

// Pending returns how many snapshots wait for their pair.
func (s *Session) Pending() int {
	return len(s.snapshots)
}

// PairID returns the id of the pair being collected, or "" when none is.
func (s *Session) PairID() string {
	if len(s.snapshots) == 0 {
		return ""
	}
	return s.pairID
}

// Reset drops any partial pair.
func (s *Session) Reset() {
	s.snapshots = s.snapshots[:0]
	s.pairID = ""
}

// Snap saves frame as the next snapshot. When it completes a pair, the pair
// is merged, the composite saved and the set emptied, whether or not merging
// succeeded. A failed snapshot save leaves the set unchanged.
func (s *Session) Snap(frame gocv.Mat) (*SnapResult, error) {
	if len(s.snapshots) == 0 {
		s.pairID = uuid.NewString()
	}

	path, err := s.store.SaveSnapshot(s.pairID, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.snapshots = append(s.snapshots, path)

	result := &SnapResult{SnapshotPath: path}
	if len(s.snapshots) < PairSize {
		return result, nil
	}

	defer s.Reset()
	composite, err := s.compose()
	if err != nil {
		return result, err
	}
	result.Composite = composite
	return result, nil
}

func (s *Session) compose() (*Composite, error) {
	images := make([]gocv.Mat, 0, len(s.snapshots))
	defer func() {
		for i := range images {
			images[i].Close()
		}
	}()

	for _, path := range s.snapshots {
		img, err := s.store.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		images = append(images, img)
	}

	merged, err := s.merger.Merge(images)
	if err != nil {
		return nil, fmt.Errorf("failed to merge pair %s: %w", s.pairID, err)
	}

	path, err := s.store.SaveComposite(s.pairID, merged)
	if err != nil {
		merged.Close()
		return nil, fmt.Errorf("failed to save composite: %w", err)
	}

	s.logger.Info("Pair %s merged into %s", s.pairID, path)
	return &Composite{PairID: s.pairID, Path: path, Image: merged}, nil
}
