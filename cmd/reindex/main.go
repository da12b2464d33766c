package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"funduscam/internal/config"
	"funduscam/internal/model"
	"funduscam/internal/repository/sqlite"

	"gocv.io/x/gocv"
)

// ReindexedPair marks records rebuilt from disk; file names do not carry the pairing.
const ReindexedPair = "reindexed"

func main() {
	cfg := config.Load()

	snapshotDir := flag.String("snapshots", cfg.SnapshotDirectory, "Directory containing snapshots")
	mergedPath := flag.String("merged", cfg.MergedImagePath, "Composite image path")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	reset := flag.Bool("reset", false, "Delete existing capture records first")
	flag.Parse()

	fmt.Printf("Indexing %s into database %s\n", *snapshotDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewCaptureRepository(db)

	if *reset {
		if err := repo.DeleteAll(); err != nil {
			log.Fatalf("Failed to clear captures: %v", err)
		}
		fmt.Println("Cleared existing capture records")
	}

	files, err := os.ReadDir(*snapshotDir)
	if err != nil {
		log.Fatalf("Failed to read snapshot directory: %v", err)
	}

	indexed, skipped := 0, 0
	for _, file := range files {
		var seq int
		if file.IsDir() || filepath.Ext(file.Name()) != ".png" {
			continue
		}
		if _, err := fmt.Sscanf(file.Name(), "snapshot_%d.png", &seq); err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if err := index(repo, model.KindSnapshot, seq, filepath.Join(*snapshotDir, file.Name())); err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}
		indexed++
	}

	if _, err := os.Stat(*mergedPath); err == nil {
		if err := index(repo, model.KindComposite, 0, *mergedPath); err != nil {
			log.Printf("Skipping %s: %v", *mergedPath, err)
			skipped++
		} else {
			indexed++
		}
	}

	fmt.Printf("Indexed %d files\n", indexed)
	if skipped > 0 {
		fmt.Printf("Skipped %d files (invalid name or unreadable)\n", skipped)
	}

	for _, kind := range []string{model.KindSnapshot, model.KindComposite} {
		if n, err := repo.Count(&model.CaptureFilter{Kind: kind}); err == nil {
			fmt.Printf("   %s: %d records\n", kind, n)
		}
	}
}

func index(repo *sqlite.CaptureRepository, kind string, seq int, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("not a readable image")
	}

	_, err = repo.Insert(&model.Capture{
		PairID:    ReindexedPair,
		Kind:      kind,
		Sequence:  seq,
		Filename:  filepath.Base(path),
		FilePath:  path,
		FileSize:  info.Size(),
		Width:     img.Cols(),
		Height:    img.Rows(),
		Timestamp: info.ModTime(),
	})
	return err
}
