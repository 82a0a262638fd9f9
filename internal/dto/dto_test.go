package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficmonitor/internal/model"
)

func sampleRecord() model.CountRecord {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	rec := model.NewCountRecord("main_junction", model.Counts{Car: 3, Bus: 1, Motorcycle: 2}, ts)
	rec.ID = 42
	return rec
}

func TestNewCountEvent(t *testing.T) {
	ev := NewCountEvent(sampleRecord())

	assert.Equal(t, CountEvent{
		ID:         42,
		Junction:   "main_junction",
		Count:      6,
		Car:        3,
		Bus:        1,
		Truck:      0,
		Motorcycle: 2,
		Time:       "09:26:53",
	}, ev)
}

func TestCountEvent_JSONFields(t *testing.T) {
	raw, err := json.Marshal(NewCountEvent(sampleRecord()))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"id", "junction", "count", "car", "bus", "truck", "motorcycle", "time"} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 8)
}

func TestFromRecord(t *testing.T) {
	resp := FromRecord(sampleRecord())

	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, 6, resp.Total)
	assert.Equal(t, "2026-03-14 09:26:53", resp.Timestamp)
}

func TestFromRecords_EmptyEncodesAsArray(t *testing.T) {
	raw, err := json.Marshal(FromRecords(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}
