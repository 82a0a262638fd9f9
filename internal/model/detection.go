package model

import "image"

// Category is one of the tracked vehicle classes.
type Category string

const (
	Car        Category = "car"
	Bus        Category = "bus"
	Truck      Category = "truck"
	Motorcycle Category = "motorcycle"
)

// Categories lists the tracked vehicle classes in reporting order.
var Categories = []Category{Car, Bus, Truck, Motorcycle}

// IsVehicle reports whether label names a tracked vehicle category.
func IsVehicle(label string) bool {
	switch Category(label) {
	case Car, Bus, Truck, Motorcycle:
		return true
	}
	return false
}

// BBox is a bounding box in pixel coordinates.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Valid reports whether the box has positive width and height.
func (b BBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Rect converts the box to an image.Rectangle.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection represents one object found in a frame by the detector.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        BBox    `json:"box"`
}
