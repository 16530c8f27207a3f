package models

import "time"

// StudentStatus is the paperwork/assignment bucket a student falls into.
type StudentStatus string

const (
	StudentStatusNotStarted StudentStatus = "not-started"
	StudentStatusInProgress StudentStatus = "in-progress"
	StudentStatusReady      StudentStatus = "ready"
	StudentStatusAssigned   StudentStatus = "assigned"
)

// StudentStatuses lists the buckets in lifecycle order.
var StudentStatuses = []StudentStatus{
	StudentStatusNotStarted,
	StudentStatusInProgress,
	StudentStatusReady,
	StudentStatusAssigned,
}

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusNotStarted, StudentStatusInProgress, StudentStatusReady, StudentStatusAssigned:
		return true
	}
	return false
}

// DeriveStatus computes a student's status from submitted forms and spot assignment.
// A spot only counts once the paperwork is complete.
func DeriveStatus(forms Forms, parkingSpot *string) StudentStatus {
	switch uploaded := forms.UploadedCount(); {
	case uploaded == 0:
		return StudentStatusNotStarted
	case uploaded < len(FormKeys):
		return StudentStatusInProgress
	case parkingSpot != nil:
		return StudentStatusAssigned
	default:
		return StudentStatusReady
	}
}

// VehicleInfo describes the car a student parks on campus.
type VehicleInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Color string `json:"color"`
	Plate string `json:"plate"`
}

// Student represents a permit applicant on the roster.
type Student struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Grade       string        `json:"grade"`
	Status      StudentStatus `json:"status"`
	Forms       Forms         `json:"forms"`
	VehicleInfo *VehicleInfo  `json:"vehicleInfo"`
	ParkingSpot *string       `json:"parkingSpot"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Refresh recomputes the derived status.
func (s *Student) Refresh() {
	s.Status = DeriveStatus(s.Forms, s.ParkingSpot)
}

// HasVehicleOnFile reports whether vehicle details or the registration document are on file.
func (s Student) HasVehicleOnFile() bool {
	return s.VehicleInfo != nil || s.Forms.Uploaded(FormVehicleRegistration)
}

// Eligible reports whether the student may be given a spot.
func (s Student) Eligible() bool {
	return s.Status == StudentStatusReady && s.ParkingSpot == nil && s.HasVehicleOnFile()
}

// Clone returns a deep copy safe to hand out of the store.
func (s Student) Clone() Student {
	clone := s
	clone.Forms = s.Forms.Clone()
	if s.VehicleInfo != nil {
		v := *s.VehicleInfo
		clone.VehicleInfo = &v
	}
	if s.ParkingSpot != nil {
		spot := *s.ParkingSpot
		clone.ParkingSpot = &spot
	}
	return clone
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Status   StudentStatus
	Search   string
	Page     int
	PageSize int
}
