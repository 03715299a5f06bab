package model

// Push message types delivered to console subscribers.
const (
	MessageSensorData    = "SENSOR_DATA"
	MessageProcessedData = "PROCESSED_DATA"
)

// Envelope is the tagged wire format for push-channel messages.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
