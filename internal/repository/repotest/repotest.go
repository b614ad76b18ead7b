// Package repotest holds the behaviour every repository backend must
// share. Backend packages call Run from their own tests.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// Opener returns a fresh, empty backend. It registers its own cleanup.
type Opener func(t *testing.T) *repository.Stores

// Run exercises the storage contract against open.
func Run(t *testing.T, open Opener) {
	t.Run("marathon round trip", func(t *testing.T) { testMarathons(t, open(t)) })
	t.Run("user uniqueness", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("participation keys and bibs", func(t *testing.T) { testParticipations(t, open(t)) })
	t.Run("participation insert needs marathon and user", func(t *testing.T) { testParticipationReferences(t, open(t)) })
	t.Run("user delete keeps results", func(t *testing.T) { testUserDelete(t, open(t)) })
	t.Run("user delete refused while result remains", func(t *testing.T) { testUserDeleteWithResult(t, open(t)) })
	t.Run("marathon delete refused while referenced", func(t *testing.T) { testMarathonDelete(t, open(t)) })
	t.Run("passing points ordered", func(t *testing.T) { testPassingPoints(t, open(t)) })
	t.Run("refresh tokens", func(t *testing.T) { testTokens(t, open(t)) })
}

func strp(s string) *string { return &s }

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// Seed inserts a marathon and a participant and returns their ids.
func Seed(t *testing.T, s *repository.Stores, email string) (marathonID, userID int64) {
	t.Helper()
	ctx := context.Background()
	m := model.Marathon{RaceName: "City Run", RaceDate: mustDate(t, "2026-11-02"), Status: model.MarathonActive}
	if err := s.Marathons.Insert(ctx, &m); err != nil {
		t.Fatalf("insert marathon: %v", err)
	}
	u := model.User{FullName: "Runner", Email: email, PasswordHash: "x", Role: model.RoleParticipant}
	if err := s.Users.Insert(ctx, &u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return m.ID, u.ID
}

func testMarathons(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	late := model.Marathon{RaceName: "Late", RaceDate: mustDate(t, "2026-12-01"), Status: model.MarathonActive}
	early := model.Marathon{RaceName: "Early", RaceDate: mustDate(t, "2026-10-01"), Status: model.MarathonPostponed}
	for _, m := range []*model.Marathon{&late, &early} {
		if err := s.Marathons.Insert(ctx, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if late.ID == 0 || early.ID == 0 || late.ID == early.ID {
		t.Fatalf("ids = %d, %d, want distinct non-zero", late.ID, early.ID)
	}

	got, err := s.Marathons.Get(ctx, early.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RaceName != "Early" || got.RaceDate.String() != "2026-10-01" || got.Status != model.MarathonPostponed {
		t.Fatalf("get = %+v", got)
	}

	early.Status = model.MarathonCancelled
	if err := s.Marathons.Update(ctx, early); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Marathons.Get(ctx, early.ID)
	if got.Status != model.MarathonCancelled {
		t.Fatalf("status = %q, want %q", got.Status, model.MarathonCancelled)
	}

	list, err := s.Marathons.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list len = %d, want 2", len(list))
	}

	if _, err := s.Marathons.Get(ctx, 9999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("get missing err = %v, want %v", err, repository.ErrNotFound)
	}
	if err := s.Marathons.Update(ctx, model.Marathon{ID: 9999, RaceName: "x", RaceDate: mustDate(t, "2026-01-01"), Status: model.MarathonActive}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("update missing err = %v, want %v", err, repository.ErrNotFound)
	}
}

func testUsers(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	a := model.User{FullName: "A", Email: " Ann@Example.com ", PasswordHash: "h", Role: model.RoleParticipant,
		PassportNo: strp("P1"), Mobile: strp("0901")}
	if err := s.Users.Insert(ctx, &a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// absent passport/mobile must not collide with each other
	for _, email := range []string{"b@example.com", "c@example.com"} {
		u := model.User{FullName: "B", Email: email, PasswordHash: "h", Role: model.RoleParticipant}
		if err := s.Users.Insert(ctx, &u); err != nil {
			t.Fatalf("insert %s: %v", email, err)
		}
	}

	dups := []model.User{
		{FullName: "dup email", Email: "ann@example.com", PasswordHash: "h", Role: model.RoleParticipant},
		{FullName: "dup passport", Email: "d@example.com", PasswordHash: "h", Role: model.RoleParticipant, PassportNo: strp("P1")},
		{FullName: "dup mobile", Email: "e@example.com", PasswordHash: "h", Role: model.RoleParticipant, Mobile: strp("0901")},
	}
	for _, u := range dups {
		if err := s.Users.Insert(ctx, &u); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("%s: err = %v, want %v", u.FullName, err, repository.ErrConflict)
		}
	}

	got, err := s.Users.FindByEmail(ctx, "ANN@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if got.ID != a.ID || got.PassportNo == nil || *got.PassportNo != "P1" {
		t.Fatalf("find by email = %+v", got)
	}
	if _, err := s.Users.FindByPassportNo(ctx, "P1"); err != nil {
		t.Fatalf("find by passport: %v", err)
	}
	if _, err := s.Users.FindByMobile(ctx, "0901"); err != nil {
		t.Fatalf("find by mobile: %v", err)
	}
	if _, err := s.Users.FindByMobile(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("find missing mobile err = %v", err)
	}

	year := 1990
	got.BirthYear = &year
	got.FullName = "Ann"
	if err := s.Users.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Users.Get(ctx, a.ID)
	if got.FullName != "Ann" || got.BirthYear == nil || *got.BirthYear != 1990 {
		t.Fatalf("after update = %+v", got)
	}

	admin := model.User{FullName: "Admin", Email: "admin@example.com", PasswordHash: "h", Role: model.RoleAdmin}
	if err := s.Users.Insert(ctx, &admin); err != nil {
		t.Fatalf("insert admin: %v", err)
	}
	participants, err := s.Users.List(ctx, repository.UserFilter{Role: model.RoleParticipant})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("participants = %d, want 3", len(participants))
	}
}

func testParticipationReferences(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	mid, uid := Seed(t, s, "ref@example.com")
	for _, p := range []model.Participation{
		{MarathonID: mid + 100, UserID: uid, EntryNumber: -uid},
		{MarathonID: mid, UserID: uid + 100, EntryNumber: -(uid + 100)},
	} {
		if err := s.Participations.Insert(ctx, p); !errors.Is(err, repository.ErrMissingReference) {
			t.Fatalf("insert %d-%d err = %v, want %v", p.MarathonID, p.UserID, err, repository.ErrMissingReference)
		}
	}
	list, err := s.Participations.List(ctx, repository.ParticipationFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("participations = %d, want 0", len(list))
	}
}

func testParticipations(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	mid, uid := Seed(t, s, "p1@example.com")
	_, uid2 := seedUser(t, s, "p2@example.com")

	p := model.Participation{MarathonID: mid, UserID: uid, EntryNumber: -uid, Hotel: strp("Grand")}
	if err := s.Participations.Insert(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Participations.Insert(ctx, p); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate insert err = %v, want %v", err, repository.ErrConflict)
	}
	p2 := model.Participation{MarathonID: mid, UserID: uid2, EntryNumber: -uid2}
	if err := s.Participations.Insert(ctx, p2); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	p.EntryNumber = 1
	if err := s.Participations.Update(ctx, p); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// re-saving the same bib for the same user is fine
	if err := s.Participations.Update(ctx, p); err != nil {
		t.Fatalf("re-accept: %v", err)
	}
	p2.EntryNumber = 1
	if err := s.Participations.Update(ctx, p2); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("bib clash err = %v, want %v", err, repository.ErrConflict)
	}

	tr, st := "03:45:10", 12
	p.TimeRecord, p.Standings = &tr, &st
	if err := s.Participations.Update(ctx, p); err != nil {
		t.Fatalf("set result: %v", err)
	}
	got, err := s.Participations.Get(ctx, mid, uid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EntryNumber != 1 || !got.HasResult() || *got.TimeRecord != tr || *got.Standings != st || *got.Hotel != "Grand" {
		t.Fatalf("get = %+v", got)
	}

	byMarathon, err := s.Participations.List(ctx, repository.ParticipationFilter{MarathonID: mid})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byMarathon) != 2 {
		t.Fatalf("list by marathon = %d, want 2", len(byMarathon))
	}
	byUser, _ := s.Participations.List(ctx, repository.ParticipationFilter{UserID: uid2})
	if len(byUser) != 1 || byUser[0].EntryNumber != -uid2 {
		t.Fatalf("list by user = %+v", byUser)
	}

	if err := s.Participations.Delete(ctx, mid, uid2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Participations.Get(ctx, mid, uid2); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
	if err := s.Participations.Delete(ctx, mid, uid2); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
}

func seedUser(t *testing.T, s *repository.Stores, email string) (model.User, int64) {
	t.Helper()
	u := model.User{FullName: "Runner", Email: email, PasswordHash: "x", Role: model.RoleParticipant}
	if err := s.Users.Insert(context.Background(), &u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return u, u.ID
}

func testUserDelete(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	mid, uid := Seed(t, s, "gone@example.com")
	other := model.Marathon{RaceName: "Trail", RaceDate: mustDate(t, "2026-12-12"), Status: model.MarathonActive}
	if err := s.Marathons.Insert(ctx, &other); err != nil {
		t.Fatalf("insert marathon: %v", err)
	}
	for _, m := range []int64{mid, other.ID} {
		if err := s.Participations.Insert(ctx, model.Participation{MarathonID: m, UserID: uid, EntryNumber: -uid}); err != nil {
			t.Fatalf("insert participation: %v", err)
		}
	}
	if err := s.Tokens.StoreRefresh(ctx, uid, "hash-gone", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("store refresh: %v", err)
	}

	if err := s.Users.Delete(ctx, uid); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.Users.Get(ctx, uid); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("get deleted user err = %v", err)
	}
	left, _ := s.Participations.List(ctx, repository.ParticipationFilter{UserID: uid})
	if len(left) != 0 {
		t.Fatalf("participations left = %d, want 0", len(left))
	}
	if err := s.Users.Delete(ctx, uid); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
}

func testUserDeleteWithResult(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	mid, uid := Seed(t, s, "done@example.com")

	tr, st := "04:01:00", 3
	p := model.Participation{MarathonID: mid, UserID: uid, EntryNumber: 1, TimeRecord: &tr, Standings: &st}
	if err := s.Participations.Insert(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Users.Delete(ctx, uid); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("delete err = %v, want %v", err, repository.ErrConflict)
	}
	if _, err := s.Users.Get(ctx, uid); err != nil {
		t.Fatalf("user should survive the refused delete: %v", err)
	}
	if _, err := s.Participations.Get(ctx, mid, uid); err != nil {
		t.Fatalf("result should survive the refused delete: %v", err)
	}
}

func testMarathonDelete(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	mid, uid := Seed(t, s, "ref@example.com")
	if err := s.Participations.Insert(ctx, model.Participation{MarathonID: mid, UserID: uid, EntryNumber: -uid}); err != nil {
		t.Fatalf("insert participation: %v", err)
	}
	if err := s.Marathons.Delete(ctx, mid); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("delete referenced err = %v, want %v", err, repository.ErrConflict)
	}
	if err := s.Participations.Delete(ctx, mid, uid); err != nil {
		t.Fatalf("delete participation: %v", err)
	}
	if err := s.Marathons.Delete(ctx, mid); err != nil {
		t.Fatalf("delete marathon: %v", err)
	}
	if err := s.Marathons.Delete(ctx, mid); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
}

func testPassingPoints(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	km := 21.1
	points := []*model.PassingPoint{
		{PointName: "Finish", DisplayOrder: 3},
		{PointName: "Start", DisplayOrder: 1, Location: strp("Square")},
		{PointName: "Half", DisplayOrder: 2, DistanceFromStart: &km},
	}
	for _, p := range points {
		if err := s.PassingPoints.Insert(ctx, p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	list, err := s.PassingPoints.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, p := range list {
		names = append(names, p.PointName)
	}
	if len(names) != 3 || names[0] != "Start" || names[1] != "Half" || names[2] != "Finish" {
		t.Fatalf("order = %v, want [Start Half Finish]", names)
	}

	half := *points[2]
	half.Description = strp("river bend")
	if err := s.PassingPoints.Update(ctx, half); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.PassingPoints.Get(ctx, half.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description == nil || *got.Description != "river bend" || got.DistanceFromStart == nil || *got.DistanceFromStart != km {
		t.Fatalf("get = %+v", got)
	}
	if err := s.PassingPoints.Delete(ctx, half.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.PassingPoints.Delete(ctx, half.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
}

func testTokens(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	_, uid := seedUser(t, s, "tok@example.com")

	if err := s.Tokens.StoreRefresh(ctx, uid, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Tokens.StoreRefresh(ctx, uid, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := s.Tokens.ValidateRefresh(ctx, "live")
	if err != nil || got != uid {
		t.Fatalf("validate live = %d, %v; want %d, nil", got, err, uid)
	}
	if _, err := s.Tokens.ValidateRefresh(ctx, "stale"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("validate stale err = %v", err)
	}
	if _, err := s.Tokens.ValidateRefresh(ctx, "unknown"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("validate unknown err = %v", err)
	}
	if err := s.Tokens.RevokeByHash(ctx, "live"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.Tokens.ValidateRefresh(ctx, "live"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("validate revoked err = %v", err)
	}

	if err := s.Tokens.StoreRefresh(ctx, uid, "second", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := s.Tokens.ValidateRefresh(ctx, "second"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("validate after revoke all err = %v", err)
	}
}
