package model

import "time"

// Counts holds the per-category vehicle counts for one frame.
type Counts struct {
	Car        int `json:"car"`
	Bus        int `json:"bus"`
	Truck      int `json:"truck"`
	Motorcycle int `json:"motorcycle"`
}

// Total returns the sum of all category counts.
func (c Counts) Total() int {
	return c.Car + c.Bus + c.Truck + c.Motorcycle
}

// Get returns the count for a category. Unknown categories are 0.
func (c Counts) Get(cat Category) int {
	switch cat {
	case Car:
		return c.Car
	case Bus:
		return c.Bus
	case Truck:
		return c.Truck
	case Motorcycle:
		return c.Motorcycle
	}
	return 0
}

// ByCategory returns the counts keyed by category.
func (c Counts) ByCategory() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for _, cat := range Categories {
		m[cat] = c.Get(cat)
	}
	return m
}

// CountRecord is the persisted vehicle count for one processed frame.
type CountRecord struct {
	ID        int64     `json:"id"`
	Junction  string    `json:"junction"`
	Total     int       `json:"total"`
	Counts    Counts    `json:"counts"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCountRecord builds a record whose Total always matches its counts.
func NewCountRecord(junction string, counts Counts, ts time.Time) CountRecord {
	return CountRecord{
		Junction:  junction,
		Total:     counts.Total(),
		Counts:    counts,
		Timestamp: ts,
	}
}
