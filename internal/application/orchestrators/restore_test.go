package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"frontporch/internal/domain/slot"
	"frontporch/internal/domain/snapshot"
)

func rec(day string, hour int, name string) snapshot.Record {
	return snapshot.Record{Day: day, Hour: hour, Name: name}
}

// TestPlanRestore_SkipReasons verifies each rejected record carries its reason.
func TestPlanRestore_SkipReasons(t *testing.T) {
	records := []snapshot.Record{
		rec(slot.Monday, 9, "Kept"),
		rec("Funday", 9, "Nowhere"),
		rec(slot.Monday, 5, "Too early"),
		rec(slot.Saturday, 12, "Closed"),
		rec(slot.Monday, 10, "   "),
		rec(slot.Monday, 10, strings.Repeat("x", 101)),
	}
	keep, skipped := PlanRestore(records, fixedNow())

	if len(keep) != 1 || keep[0].Name != "Kept" || !keep[0].CreatedAt.Equal(fixedNow()) {
		t.Errorf("keep = %+v", keep)
	}
	want := []string{SkipOffGrid, SkipOffGrid, SkipUnavailable, SkipBadName, SkipBadName}
	if len(skipped) != len(want) {
		t.Fatalf("skipped = %+v, want %d entries", skipped, len(want))
	}
	for i, w := range want {
		if skipped[i].Reason != w {
			t.Errorf("skipped[%d].Reason = %s, want %s", i, skipped[i].Reason, w)
		}
	}
}

// TestPlanRestore_CapsEachSlot verifies records past capacity are skipped in input order.
func TestPlanRestore_CapsEachSlot(t *testing.T) {
	var records []snapshot.Record
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		records = append(records, rec(slot.Tuesday, 11, n))
	}
	records = append(records, rec(slot.Tuesday, 12, "G"))

	keep, skipped := PlanRestore(records, fixedNow())
	if len(keep) != 5 {
		t.Fatalf("keep = %d, want 5", len(keep))
	}
	if len(skipped) != 2 || skipped[0].Record.Name != "E" || skipped[1].Record.Name != "F" {
		t.Errorf("skipped = %+v, want E and F", skipped)
	}
	for _, s := range skipped {
		if s.Reason != SkipOverflow {
			t.Errorf("reason = %s, want %s", s.Reason, SkipOverflow)
		}
	}
}

// TestExecuteRestore_ReplacesAndSummarizes restores over existing data and seeds the admin.
func TestExecuteRestore_ReplacesAndSummarizes(t *testing.T) {
	store := newTestSignupStore(t)
	seedSlot(t, store, slot.Friday, 8, "Stale")
	admins := newMockAdminStore()
	ctx := context.Background()

	summary, err := ExecuteRestore(ctx, RestoreInput{
		Records: []snapshot.Record{
			rec(slot.Monday, 9, "Ada"),
			rec(slot.Monday, 9, "Grace"),
			rec(slot.Monday, 14, "Katherine"),
			rec(slot.Wednesday, 9, "Dorothy"),
			rec(slot.Sunday, 8, "Skipped"),
		},
		AdminUsername: "frontporchadmin",
		AdminPassword: "toomanymugs",
	}, RestoreDeps{SignupStore: store, Seed: SeedAdminDeps{AdminStore: admins}, Now: fixedNow})
	if err != nil {
		t.Fatalf("ExecuteRestore: %v", err)
	}

	if summary.Total != 4 {
		t.Errorf("Total = %d, want 4", summary.Total)
	}
	wantDays := []DayCount{{Day: slot.Monday, Count: 3}, {Day: slot.Wednesday, Count: 1}}
	if len(summary.ByDay) != len(wantDays) {
		t.Fatalf("ByDay = %+v", summary.ByDay)
	}
	for i, w := range wantDays {
		if summary.ByDay[i] != w {
			t.Errorf("ByDay[%d] = %+v, want %+v", i, summary.ByDay[i], w)
		}
	}
	wantHours := []HourCount{{Hour: 9, Count: 3}, {Hour: 14, Count: 1}}
	if len(summary.ByHour) != len(wantHours) {
		t.Fatalf("ByHour = %+v", summary.ByHour)
	}
	for i, w := range wantHours {
		if summary.ByHour[i] != w {
			t.Errorf("ByHour[%d] = %+v, want %+v", i, summary.ByHour[i], w)
		}
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0].Reason != SkipUnavailable {
		t.Errorf("Skipped = %+v", summary.Skipped)
	}
	if !summary.AdminCreated {
		t.Error("AdminCreated = false, want true")
	}

	all, _ := store.ListAll(ctx)
	for _, s := range all {
		if s.Name == "Stale" {
			t.Error("pre-restore signup survived")
		}
	}
}

// TestExecuteRestore_ExistingAdminKept verifies a restore never resets an admin password.
func TestExecuteRestore_ExistingAdminKept(t *testing.T) {
	store := newTestSignupStore(t)
	admins := seededAdminStore(t, "frontporchadmin", "original")

	summary, err := ExecuteRestore(context.Background(), RestoreInput{
		Records:       []snapshot.Record{rec(slot.Monday, 9, "Ada")},
		AdminUsername: "frontporchadmin",
		AdminPassword: "replacement",
	}, RestoreDeps{SignupStore: store, Seed: SeedAdminDeps{AdminStore: admins}})
	if err != nil {
		t.Fatalf("ExecuteRestore: %v", err)
	}
	if summary.AdminCreated {
		t.Error("AdminCreated = true for existing admin")
	}
	a := admins.admins["frontporchadmin"]
	if err := a.CheckPassword("original"); err != nil {
		t.Errorf("original password no longer valid: %v", err)
	}
}

// TestExecuteRestore_NoAdminCredentials verifies the admin step is skipped without credentials.
func TestExecuteRestore_NoAdminCredentials(t *testing.T) {
	store := newTestSignupStore(t)
	admins := newMockAdminStore()

	summary, err := ExecuteRestore(context.Background(), RestoreInput{
		Records: []snapshot.Record{rec(slot.Monday, 9, "Ada")},
	}, RestoreDeps{SignupStore: store, Seed: SeedAdminDeps{AdminStore: admins}})
	if err != nil {
		t.Fatalf("ExecuteRestore: %v", err)
	}
	if summary.AdminCreated || admins.saves != 0 {
		t.Errorf("admin touched: created=%v saves=%d", summary.AdminCreated, admins.saves)
	}
}

// TestExecuteRestore_NothingToRestore verifies existing data survives an empty snapshot.
func TestExecuteRestore_NothingToRestore(t *testing.T) {
	store := newTestSignupStore(t)
	seedSlot(t, store, slot.Monday, 9, "Keep")

	summary, err := ExecuteRestore(context.Background(), RestoreInput{
		Records: []snapshot.Record{rec(slot.Saturday, 9, "Closed")},
	}, RestoreDeps{SignupStore: store, Seed: SeedAdminDeps{AdminStore: newMockAdminStore()}})
	if !errors.Is(err, ErrNothingToRestore) {
		t.Fatalf("err = %v, want ErrNothingToRestore", err)
	}
	if len(summary.Skipped) != 1 {
		t.Errorf("Skipped = %+v", summary.Skipped)
	}
	if n, _ := store.Count(context.Background()); n != 1 {
		t.Errorf("Count = %d, want existing row kept", n)
	}
}
