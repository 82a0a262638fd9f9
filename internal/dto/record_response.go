package dto

import "trafficmonitor/internal/model"

const timestampLayout = "2006-01-02 15:04:05"

// RecordResponse is one element of the /api/data array.
type RecordResponse struct {
	ID         int64  `json:"id"`
	Junction   string `json:"junction"`
	Total      int    `json:"total"`
	Car        int    `json:"car"`
	Bus        int    `json:"bus"`
	Truck      int    `json:"truck"`
	Motorcycle int    `json:"motorcycle"`
	Timestamp  string `json:"timestamp"`
}

func FromRecord(rec model.CountRecord) RecordResponse {
	return RecordResponse{
		ID:         rec.ID,
		Junction:   rec.Junction,
		Total:      rec.Total,
		Car:        rec.Counts.Car,
		Bus:        rec.Counts.Bus,
		Truck:      rec.Counts.Truck,
		Motorcycle: rec.Counts.Motorcycle,
		Timestamp:  rec.Timestamp.Local().Format(timestampLayout),
	}
}

// FromRecords never returns nil so that an empty result encodes as [].
func FromRecords(recs []model.CountRecord) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}
