package counting

import "trafficmonitor/internal/model"

// Aggregate counts vehicle detections per category. Labels outside the
// tracked categories are ignored.
func Aggregate(detections []model.Detection) model.Counts {
	var c model.Counts
	for _, d := range detections {
		switch model.Category(d.Label) {
		case model.Car:
			c.Car++
		case model.Bus:
			c.Bus++
		case model.Truck:
			c.Truck++
		case model.Motorcycle:
			c.Motorcycle++
		}
	}
	return c
}
