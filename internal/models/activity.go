package models

import "time"

// ActivityType names an operator action recorded in the activity log.
type ActivityType string

const (
	ActivityStudentAdded      ActivityType = "student.added"
	ActivityFormUploaded      ActivityType = "form.uploaded"
	ActivityVehicleRegistered ActivityType = "vehicle.registered"
	ActivitySpotAssigned      ActivityType = "spot.assigned"
)

// ActivityEvent is one entry of the append-only activity log.
type ActivityEvent struct {
	ID         string       `json:"id"`
	Type       ActivityType `json:"type"`
	StudentID  string       `json:"studentId,omitempty"`
	SpotID     string       `json:"spotId,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}
