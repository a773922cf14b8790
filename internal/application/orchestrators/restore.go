package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
	"frontporch/internal/domain/snapshot"
)

// ErrNothingToRestore is returned before any destructive step when no usable signups remain.
var ErrNothingToRestore = errors.New("snapshot contains no restorable signups")

// Skip reasons reported in RestoreSummary.Skipped.
const (
	SkipOffGrid     = "off_grid"
	SkipUnavailable = "unavailable"
	SkipBadName     = "bad_name"
	SkipOverflow    = "over_capacity"
)

// SignupStoreForRestore defines the store interface needed by Restore.
type SignupStoreForRestore interface {
	ReplaceAll(ctx context.Context, values []signup.Signup) error
	Count(ctx context.Context) (int, error)
	CountByDay(ctx context.Context) (map[string]int, error)
	CountByHour(ctx context.Context) (map[int]int, error)
}

// RestoreInput carries the decoded snapshot and the admin to ensure afterwards.
// An empty AdminUsername or AdminPassword skips the admin step.
type RestoreInput struct {
	Records       []snapshot.Record
	AdminUsername string
	AdminPassword string
}

// RestoreDeps holds dependencies for Restore.
type RestoreDeps struct {
	SignupStore SignupStoreForRestore
	Seed        SeedAdminDeps
	Now         func() time.Time
}

// DayCount is the number of restored signups on one weekday.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// HourCount is the number of restored signups at one hour, across all days.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// SkippedRecord is a snapshot record that was not restored.
type SkippedRecord struct {
	Record snapshot.Record `json:"record"`
	Reason string          `json:"reason"`
}

// RestoreSummary reports what the database holds after a restore.
type RestoreSummary struct {
	Total        int             `json:"total"`
	ByDay        []DayCount      `json:"by_day"`
	ByHour       []HourCount     `json:"by_hour"`
	Skipped      []SkippedRecord `json:"skipped"`
	AdminCreated bool            `json:"admin_created"`
}

// PlanRestore splits records into the signups to write and the ones to skip.
// It never touches storage, so callers can preview a restore before confirming.
// PRE: none
// POST: Every kept signup is on an available slot; no slot holds more than slot.Capacity
func PlanRestore(records []snapshot.Record, now time.Time) ([]signup.Signup, []SkippedRecord) {
	var keep []signup.Signup
	var skipped []SkippedRecord
	perSlot := make(map[string]int)

	for _, rec := range records {
		rec.Name = signup.NormalizeName(rec.Name)
		switch {
		case !slot.InGrid(rec.Day, rec.Hour):
			skipped = append(skipped, SkippedRecord{Record: rec, Reason: SkipOffGrid})
			continue
		case !slot.IsAvailable(rec.Day, rec.Hour):
			skipped = append(skipped, SkippedRecord{Record: rec, Reason: SkipUnavailable})
			continue
		}

		s := signup.Signup{Day: rec.Day, Hour: rec.Hour, Name: rec.Name, CreatedAt: now}
		if err := s.Validate(); err != nil {
			skipped = append(skipped, SkippedRecord{Record: rec, Reason: SkipBadName})
			continue
		}
		key := s.Slot().Key()
		if perSlot[key] >= slot.Capacity {
			skipped = append(skipped, SkippedRecord{Record: rec, Reason: SkipOverflow})
			continue
		}
		perSlot[key]++
		keep = append(keep, s)
	}
	return keep, skipped
}

// ExecuteRestore replaces every signup with the snapshot's contents.
// PRE: Database is migrated
// POST: signup table holds exactly the kept records; admin table untouched
// except that the configured admin is created if missing
func ExecuteRestore(ctx context.Context, input RestoreInput, deps RestoreDeps) (RestoreSummary, error) {
	keep, skipped := PlanRestore(input.Records, clock(deps.Now))
	for _, sk := range skipped {
		slog.Warn("restore_event", "event", "record_skipped", "reason", sk.Reason,
			"day", sk.Record.Day, "hour", sk.Record.Hour, "name", sk.Record.Name)
	}
	if len(keep) == 0 {
		return RestoreSummary{Skipped: skipped}, ErrNothingToRestore
	}

	if err := deps.SignupStore.ReplaceAll(ctx, keep); err != nil {
		return RestoreSummary{}, fmt.Errorf("replace signups: %w", err)
	}
	slog.Info("restore_event", "event", "signups_replaced", "count", len(keep), "skipped", len(skipped))

	summary := RestoreSummary{Skipped: skipped}
	if input.AdminUsername != "" && input.AdminPassword != "" {
		created, err := ExecuteSeedAdmin(ctx, deps.Seed, input.AdminUsername, input.AdminPassword)
		if err != nil {
			return RestoreSummary{}, fmt.Errorf("ensure admin: %w", err)
		}
		summary.AdminCreated = created
	}

	if err := fillCounts(ctx, deps.SignupStore, &summary); err != nil {
		return RestoreSummary{}, fmt.Errorf("count restored signups: %w", err)
	}
	return summary, nil
}

// fillCounts reads the post-restore totals back from storage.
func fillCounts(ctx context.Context, store SignupStoreForRestore, summary *RestoreSummary) error {
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	summary.Total = total

	byDay, err := store.CountByDay(ctx)
	if err != nil {
		return err
	}
	for _, d := range slot.Days {
		if n := byDay[d]; n > 0 {
			summary.ByDay = append(summary.ByDay, DayCount{Day: d, Count: n})
		}
	}

	byHour, err := store.CountByHour(ctx)
	if err != nil {
		return err
	}
	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		summary.ByHour = append(summary.ByHour, HourCount{Hour: h, Count: byHour[h]})
	}
	return nil
}
