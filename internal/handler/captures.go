package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"funduscam/internal/dto"
	"funduscam/internal/logger"
	"funduscam/internal/model"
	"funduscam/internal/repository"
)

const defaultCaptureLimit = 50

// GetCapturesHandler returns capture records, newest first. A pair query
// without kind returns all of that pair's records in capture order, with
// limit and offset reported as 0.
// Query: kind=snapshot|composite, pair=<id>, limit, offset.
func GetCapturesHandler(captureRepo repository.CaptureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		filter := &model.CaptureFilter{
			Kind:   q.Get("kind"),
			PairID: q.Get("pair"),
			Limit:  atoiDefault(q.Get("limit"), defaultCaptureLimit),
			Offset: atoiDefault(q.Get("offset"), 0),
		}

		var captures []model.Capture
		var err error
		wholePair := filter.PairID != "" && filter.Kind == ""
		if wholePair {
			captures, err = captureRepo.GetByPairID(filter.PairID)
		} else {
			captures, err = captureRepo.GetAll(filter)
		}
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		total := len(captures)
		if wholePair {
			filter.Limit, filter.Offset = 0, 0
		} else if total, err = captureRepo.Count(filter); err != nil {
			logger.Error("Error counting captures: %v", err)
			total = len(captures)
		}

		if captures == nil {
			captures = []model.Capture{}
		}
		data := dto.CapturesData{
			Captures: captures,
			Total:    total,
			Limit:    filter.Limit,
			Offset:   filter.Offset,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewCaptureHandler serves the file behind one capture record.
func ViewCaptureHandler(captureRepo repository.CaptureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Valid id required", http.StatusBadRequest)
			return
		}

		capture, err := captureRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading capture %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if capture == nil {
			http.NotFound(w, r)
			return
		}
		if _, err := os.Stat(capture.FilePath); err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, capture.FilePath)
	}
}

// atoiDefault parses a non-negative integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
