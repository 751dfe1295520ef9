package entity

// DetectionBox coordinates are normalized to [0,1] relative to image
// width/height, independent of device pixel density.
type DetectionBox struct {
	XMin float64 `json:"xMin"`
	XMax float64 `json:"xMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
}

type Detection struct {
	Box   DetectionBox `json:"box"`
	Label string       `json:"label"`
	Score float64      `json:"score"`
}

// PredictionResult preserves the inference service's insertion order for
// deterministic rendering tie-breaks.
type PredictionResult struct {
	Detections []Detection `json:"detections"`
}
