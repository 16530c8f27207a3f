package models

import "fmt"

// SpotZone groups spots by their place in the lot.
type SpotZone string

const (
	SpotZoneTop    SpotZone = "top"
	SpotZoneLeft   SpotZone = "left"
	SpotZoneRight  SpotZone = "right"
	SpotZoneBottom SpotZone = "bottom"
	SpotZoneBlock  SpotZone = "block"
)

// Valid reports whether z is a known zone.
func (z SpotZone) Valid() bool {
	switch z {
	case SpotZoneTop, SpotZoneLeft, SpotZoneRight, SpotZoneBottom, SpotZoneBlock:
		return true
	}
	return false
}

// ParkingSpot is one named space in the lot catalog.
// Occupied, Student and StudentID are always set and cleared together.
type ParkingSpot struct {
	ID          string   `json:"id"`
	Zone        SpotZone `json:"zone"`
	Block       string   `json:"block,omitempty"`
	Occupied    bool     `json:"occupied"`
	Student     *string  `json:"student"`
	StudentID   *string  `json:"studentId,omitempty"`
	Handicapped bool     `json:"handicapped"`
}

// Occupy binds the spot to a student.
func (p *ParkingSpot) Occupy(studentID, name string) {
	p.Occupied = true
	p.Student = &name
	p.StudentID = &studentID
}

// Clone returns a copy that does not alias the catalog entry.
func (p ParkingSpot) Clone() ParkingSpot {
	clone := p
	if p.Student != nil {
		name := *p.Student
		clone.Student = &name
	}
	if p.StudentID != nil {
		id := *p.StudentID
		clone.StudentID = &id
	}
	return clone
}

// SpotFilter narrows catalog listings.
type SpotFilter struct {
	Zone      SpotZone
	Available *bool
}

// Matches reports whether the spot passes the filter.
func (f SpotFilter) Matches(spot ParkingSpot) bool {
	if f.Zone != "" && spot.Zone != f.Zone {
		return false
	}
	if f.Available != nil && spot.Occupied == *f.Available {
		return false
	}
	return true
}

// EdgeRow is a named run of perimeter spots.
type EdgeRow struct {
	Zone   SpotZone
	Prefix string
	Count  int
	// Handicapped spots are appended after the regular ones, numbered from 1 under their own prefix.
	HandicappedPrefix string
	HandicappedCount  int
}

// LotLayout declares the topology the spot catalog is generated from.
type LotLayout struct {
	Edges     []EdgeRow
	Blocks    []string
	BlockRows int
	BlockCols int
}

// DefaultLotLayout is the school lot: four perimeter edges and six interior blocks of 2x10.
func DefaultLotLayout() LotLayout {
	return LotLayout{
		Edges: []EdgeRow{
			{Zone: SpotZoneTop, Prefix: "T", Count: 8, HandicappedPrefix: "H", HandicappedCount: 4},
			{Zone: SpotZoneLeft, Prefix: "L", Count: 20},
			{Zone: SpotZoneRight, Prefix: "R", Count: 19},
			{Zone: SpotZoneBottom, Prefix: "B", Count: 28},
		},
		Blocks:    []string{"B", "C", "D", "E", "F", "G"},
		BlockRows: 2,
		BlockCols: 10,
	}
}

// Size returns the number of spots the layout declares.
func (l LotLayout) Size() int {
	total := len(l.Blocks) * l.BlockRows * l.BlockCols
	for _, edge := range l.Edges {
		total += edge.Count + edge.HandicappedCount
	}
	return total
}

// Spots generates the catalog in layout order, every spot free.
func (l LotLayout) Spots() []ParkingSpot {
	spots := make([]ParkingSpot, 0, l.Size())
	for _, edge := range l.Edges {
		for i := 1; i <= edge.Count; i++ {
			spots = append(spots, ParkingSpot{ID: fmt.Sprintf("%s%d", edge.Prefix, i), Zone: edge.Zone})
		}
		for i := 1; i <= edge.HandicappedCount; i++ {
			spots = append(spots, ParkingSpot{
				ID:          fmt.Sprintf("%s%d", edge.HandicappedPrefix, i),
				Zone:        edge.Zone,
				Handicapped: true,
			})
		}
	}
	for _, block := range l.Blocks {
		for row := 1; row <= l.BlockRows; row++ {
			for col := 1; col <= l.BlockCols; col++ {
				spots = append(spots, ParkingSpot{
					ID:    BlockSpotID(block, row, col),
					Zone:  SpotZoneBlock,
					Block: block,
				})
			}
		}
	}
	return spots
}

// BlockSpotID renders an interior spot label such as "C2-7".
func BlockSpotID(block string, row, col int) string {
	return fmt.Sprintf("%s%d-%d", block, row, col)
}
