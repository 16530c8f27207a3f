package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

type demoStudent struct {
	name    string
	email   string
	grade   string
	forms   []models.FormKey
	vehicle *models.VehicleInfo
	spot    string
}

var demoRoster = []demoStudent{
	{name: "John Doe", email: "john.doe@school.edu", grade: "12"},
	{
		name:  "Jane Smith",
		email: "jane.smith@school.edu",
		grade: "11",
		forms: []models.FormKey{models.FormDriverLicense, models.FormInsurance},
	},
	{
		name:    "Mike Grant",
		email:   "mike.grant22@mba.edu",
		grade:   "12",
		forms:   models.FormKeys,
		vehicle: &models.VehicleInfo{Make: "Honda", Model: "Civic", Year: "2020", Color: "Blue", Plate: "ABC123"},
	},
	{
		name:    "Nathan Williams",
		email:   "nathan.williams24@mba.edu",
		grade:   "10",
		forms:   models.FormKeys,
		vehicle: &models.VehicleInfo{Make: "Toyota", Model: "Camry", Year: "2019", Color: "Red", Plate: "XYZ789"},
		spot:    "B1-5",
	},
	{
		name:    "Ben McSween",
		email:   "ben.mcsween22@mba.edu",
		grade:   "12",
		forms:   models.FormKeys,
		vehicle: &models.VehicleInfo{Make: "Ford", Model: "Focus", Year: "2021", Color: "White", Plate: "DEF456"},
	},
	{
		name:    "Luke Keller",
		email:   "luke.keller24@mba.edu",
		grade:   "10",
		forms:   models.FormKeys,
		vehicle: &models.VehicleInfo{Make: "Nissan", Model: "Altima", Year: "2019", Color: "Gray", Plate: "GHI789"},
	},
}

// SeedDemo loads the demo roster and its pre-assigned spot into the store.
// Returns the number of students created.
func SeedDemo(ctx context.Context, db *Store) (int, error) {
	students := NewStudentRepository(db)
	spots := NewSpotRepository(db)

	for _, demo := range demoRoster {
		forms := models.NewForms()
		for _, key := range demo.forms {
			forms.MarkUploaded(key)
		}
		student := &models.Student{
			Name:        demo.name,
			Email:       demo.email,
			Grade:       demo.grade,
			Forms:       forms,
			VehicleInfo: demo.vehicle,
		}
		if err := students.Create(ctx, student); err != nil {
			return 0, fmt.Errorf("seed student %s: %w", demo.name, err)
		}
		if demo.spot == "" {
			continue
		}
		_, _, err := spots.Assign(ctx, demo.spot, student.ID, func(spot *models.ParkingSpot, s *models.Student) error {
			spotID := spot.ID
			spot.Occupy(s.ID, s.Name)
			s.ParkingSpot = &spotID
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("seed spot %s: %w", demo.spot, err)
		}
	}
	return len(demoRoster), nil
}
