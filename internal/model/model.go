package model

import "time"

// CaptureEvent is a single image/frame reference submitted for analysis.
// Immutable after creation; consumed exactly once by the dispatcher.
type CaptureEvent struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"sourceId"`
	ImageRef   string    `json:"imageRef"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// AnalysisResult is the completed annotation for one capture event.
// Attempt records which provider attempt succeeded (1-based).
type AnalysisResult struct {
	ID           int64     `json:"id"`
	SourceID     string    `json:"sourceId"`
	ImageRef     string    `json:"imageRef"`
	AnalysisText string    `json:"analysisText"`
	CompletedAt  time.Time `json:"completedAt"`
	Attempt      int       `json:"attempt"`
}

// Position is a geographic position with altitude in meters.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Orientation holds attitude angles in degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// SensorData is a raw telemetry sample from the drone.
type SensorData struct {
	BatteryLevel float64     `json:"batteryLevel"`
	GPS          Position    `json:"gps"`
	Orientation  Orientation `json:"orientation"`
}
