package models

import "time"

// V2VMessage is a vehicle-to-vehicle payload signed by the sender OBU.
type V2VMessage struct {
	SenderID     string    `json:"sender_id"`
	SerialNumber string    `json:"serial_number"`
	Payload      []byte    `json:"payload"`
	Timestamp    time.Time `json:"timestamp"`
	Signature    []byte    `json:"signature"`
}
