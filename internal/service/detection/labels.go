package detection

import "fmt"

// cocoLabels maps SSD COCO class ids to labels. Ids 3, 4, 6 and 8 are the
// tracked vehicle categories.
var cocoLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	5:  "airplane",
	6:  "bus",
	7:  "train",
	8:  "truck",
	9:  "boat",
	10: "traffic light",
	11: "fire hydrant",
	13: "stop sign",
}

// COCOLabel maps model class IDs to human-readable labels.
func COCOLabel(classID int) string {
	if label, exists := cocoLabels[classID]; exists {
		return label
	}
	return fmt.Sprintf("class%d", classID)
}
