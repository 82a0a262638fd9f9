package handler

import (
	"net/http"
	"strconv"

	"trafficmonitor/internal/dto"
	"trafficmonitor/internal/logger"
	"trafficmonitor/internal/repository"
)

const (
	DefaultRecordLimit = 100
	MaxRecordLimit     = 1000
)

// GetRecordsHandler returns the most recent count records, newest first.
// Store failures are logged and answered with an empty list.
func GetRecordsHandler(repo repository.CountRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r.URL.Query().Get("limit"))

		records, err := repo.GetRecent(limit)
		if err != nil {
			logger.Error("Failed to load recent records: %v", err)
			writeJSON(w, logger, http.StatusOK, []dto.RecordResponse{})
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.FromRecords(records))
	}
}

// parseLimit falls back to DefaultRecordLimit for missing or invalid values
// and caps the result at MaxRecordLimit.
func parseLimit(raw string) int {
	if raw == "" {
		return DefaultRecordLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return DefaultRecordLimit
	}
	if limit > MaxRecordLimit {
		return MaxRecordLimit
	}
	return limit
}
