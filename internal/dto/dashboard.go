package dto

import "time"

// DashboardSummary feeds the roster buckets and the lot header of the dashboard.
type DashboardSummary struct {
	Roster      RosterSummary `json:"roster"`
	Lot         LotSummary    `json:"lot"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// RosterSummary counts students per status bucket.
type RosterSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	// Pending is not-started plus in-progress, the dashboard's "needs paperwork" column.
	Pending  int `json:"pending"`
	Eligible int `json:"eligible"`
}

// LotSummary reports occupancy of the spot catalog.
type LotSummary struct {
	Total                int     `json:"total"`
	Occupied             int     `json:"occupied"`
	Available            int     `json:"available"`
	HandicappedAvailable int     `json:"handicappedAvailable"`
	OccupancyRate        float64 `json:"occupancyRate"`
}
