package dto

import "trafficmonitor/internal/model"

// CountEvent is the live notification pushed to subscribers after a record
// has been stored. Time is the local wall-clock time of processing.
type CountEvent struct {
	ID         int64  `json:"id"`
	Junction   string `json:"junction"`
	Count      int    `json:"count"`
	Car        int    `json:"car"`
	Bus        int    `json:"bus"`
	Truck      int    `json:"truck"`
	Motorcycle int    `json:"motorcycle"`
	Time       string `json:"time"`
}

// NewCountEvent builds the event for a persisted record.
func NewCountEvent(rec model.CountRecord) CountEvent {
	return CountEvent{
		ID:         rec.ID,
		Junction:   rec.Junction,
		Count:      rec.Total,
		Car:        rec.Counts.Car,
		Bus:        rec.Counts.Bus,
		Truck:      rec.Counts.Truck,
		Motorcycle: rec.Counts.Motorcycle,
		Time:       rec.Timestamp.Local().Format("15:04:05"),
	}
}
