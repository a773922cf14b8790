package projections

import (
	"context"

	domainSignup "frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// GridCell is one (day, hour) position with its current signups.
type GridCell struct {
	Day       string                `json:"day"`
	Hour      int                   `json:"hour"`
	Available bool                  `json:"available"`
	Remaining int                   `json:"remaining"`
	Signups   []domainSignup.Signup `json:"-"`
}

// Full reports whether an available cell has no room left.
func (c GridCell) Full() bool {
	return c.Available && c.Remaining == 0
}

// Key returns the slot key of the cell.
func (c GridCell) Key() string {
	return slot.Slot{Day: c.Day, Hour: c.Hour}.Key()
}

// GridRow is one hour across every day.
type GridRow struct {
	Hour  int        `json:"hour"`
	Label string     `json:"label"`
	Cells []GridCell `json:"cells"`
}

// GetGridResult is the weekly grid in display order.
type GetGridResult struct {
	Days     []string  `json:"days"`
	Rows     []GridRow `json:"rows"`
	Capacity int       `json:"capacity"`
	Total    int       `json:"total"`
}

// Cell returns the cell for (day, hour) and whether it is on the grid.
func (g GetGridResult) Cell(day string, hour int) (GridCell, bool) {
	d := slot.DayIndex(day)
	h := hour - slot.FirstHour
	if d < 0 || h < 0 || h >= len(g.Rows) {
		return GridCell{}, false
	}
	return g.Rows[h].Cells[d], true
}

// At is Cell for templates; off-grid positions yield an unavailable zero cell.
func (g GetGridResult) At(day string, hour int) GridCell {
	c, _ := g.Cell(day, hour)
	return c
}

// GetGridDeps holds dependencies for GetGrid.
type GetGridDeps struct {
	SignupStore SignupStore
}

// QueryGetGrid builds the weekly grid with remaining capacity per slot.
// PRE: none
// POST: Rows cover every grid hour; each row has one cell per day in weekday order
// INVARIANT: Remaining is 0 for unavailable cells and never negative
func QueryGetGrid(ctx context.Context, deps GetGridDeps) (GetGridResult, error) {
	all, err := deps.SignupStore.ListAll(ctx)
	if err != nil {
		return GetGridResult{}, err
	}

	bySlot := make(map[string][]domainSignup.Signup)
	for _, s := range all {
		k := s.Slot().Key()
		bySlot[k] = append(bySlot[k], s)
	}

	result := GetGridResult{
		Days:     slot.Days,
		Capacity: slot.Capacity,
		Total:    len(all),
	}
	for _, hour := range slot.Hours() {
		row := GridRow{Hour: hour, Label: slot.FormatHour(hour)}
		for _, day := range slot.Days {
			sl := slot.Slot{Day: day, Hour: hour}
			cell := GridCell{
				Day:       day,
				Hour:      hour,
				Available: slot.IsAvailable(day, hour),
				Signups:   bySlot[sl.Key()],
			}
			if cell.Available {
				cell.Remaining = max(slot.Capacity-len(cell.Signups), 0)
			}
			row.Cells = append(row.Cells, cell)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}
