package service

import (
	"context"
	"testing"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/model"
)

func strp(s string) *string { return &s }

func TestSignupAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewParticipantService(f.stores, 4)

	u, err := svc.Signup(ctx, SignupInput{
		FullName: "Lan Tran",
		Email:    " Lan@Example.com ",
		Password: "secret1",
		Mobile:   strp("0901234567"),
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "lan@example.com" || u.Role != model.RoleParticipant {
		t.Fatalf("user = %+v", u)
	}

	tests := []struct {
		name string
		in   SignupInput
		kind apperr.Kind
		msg  string
	}{
		{"missing fields", SignupInput{Email: "x@example.com", Password: "secret1"}, apperr.KindValidation, "fullName, email and password are required"},
		{"bad email", SignupInput{FullName: "X", Email: "not-an-email", Password: "secret1"}, apperr.KindValidation, "invalid email address"},
		{"short password", SignupInput{FullName: "X", Email: "x@example.com", Password: "abc"}, apperr.KindValidation, "password must be at least 6 characters"},
		{"duplicate email", SignupInput{FullName: "X", Email: "LAN@example.com", Password: "secret1"}, apperr.KindConflict, "email already registered"},
		{"duplicate mobile", SignupInput{FullName: "X", Email: "x@example.com", Password: "secret1", Mobile: strp("0901234567")}, apperr.KindConflict, "mobile number already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.in)
			assertKind(t, err, tt.kind)
			if got := apperr.PublicMessage(err); got != tt.msg {
				t.Fatalf("message = %q, want %q", got, tt.msg)
			}
		})
	}

	if _, err := svc.Authenticate(ctx, "LAN@example.com", "secret1"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_, err = svc.Authenticate(ctx, "lan@example.com", "wrong-pass")
	assertKind(t, err, apperr.KindUnauthorized)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assertKind(t, err, apperr.KindUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewParticipantService(f.stores, 4)
	a, err := svc.Signup(ctx, SignupInput{FullName: "A", Email: "a@example.com", Password: "secret1", PassportNo: strp("P100")})
	if err != nil {
		t.Fatalf("signup a: %v", err)
	}
	b, err := svc.Signup(ctx, SignupInput{FullName: "B", Email: "b@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup b: %v", err)
	}

	_, err = svc.UpdateProfile(ctx, b.ID, ProfilePatch{PassportNo: strp("P100")})
	assertKind(t, err, apperr.KindConflict)
	_, err = svc.UpdateProfile(ctx, b.ID, ProfilePatch{BirthYear: func() *int { y := 1800; return &y }()})
	assertKind(t, err, apperr.KindValidation)

	year := 1990
	got, err := svc.UpdateProfile(ctx, a.ID, ProfilePatch{
		FullName:    strp("Anh Nguyen"),
		PassportNo:  strp("P100"),
		BirthYear:   &year,
		BestRecord:  strp("03:10:00"),
		Nationality: strp(""),
	})
	if err != nil {
		t.Fatalf("update own passport: %v", err)
	}
	if got.FullName != "Anh Nguyen" || *got.BirthYear != 1990 || got.Nationality != nil || got.Role != model.RoleParticipant {
		t.Fatalf("updated = %+v", got)
	}
}

func TestDeleteParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewParticipantService(f.stores, 4)
	m := f.marathon(t, "City Marathon", "2026-04-10", model.MarathonActive)
	pending := f.registered(t, m, "pending@example.com")
	finisher := f.registered(t, m, "finisher@example.com")
	if _, err := f.svc.Accept(ctx, f.admin, m.ID, finisher.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.SetResult(ctx, f.admin, m.ID, finisher.ID, "4:00", "9"); err != nil {
		t.Fatalf("set result: %v", err)
	}

	err := svc.Delete(ctx, finisher.ID)
	assertKind(t, err, apperr.KindConflict)
	if got := apperr.PublicMessage(err); got != "cannot delete participant with existing race results" {
		t.Fatalf("message = %q", got)
	}

	if err := svc.Delete(ctx, pending.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err := f.svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].UserID != finisher.ID {
		t.Fatalf("participations = %+v, want only finisher", all)
	}

	err = svc.Delete(ctx, pending.ID)
	assertKind(t, err, apperr.KindNotFound)

	admin, created, err := svc.EnsureAdmin(ctx, "admin@example.com", "adminpass", "")
	if err != nil || !created {
		t.Fatalf("ensure admin = %v, %v", created, err)
	}
	err = svc.Delete(ctx, admin.ID)
	assertKind(t, err, apperr.KindInvalidState)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewParticipantService(f.stores, 4)

	first, created, err := svc.EnsureAdmin(ctx, "Admin@Example.com", "adminpass", "")
	if err != nil || !created {
		t.Fatalf("first = %v, %v, want created", created, err)
	}
	if first.FullName != "System Admin" || !first.IsAdmin() {
		t.Fatalf("admin = %+v", first)
	}
	second, created, err := svc.EnsureAdmin(ctx, "admin@example.com", "other-pass", "Someone")
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("second = %+v, %v, %v, want existing", second, created, err)
	}

	u, err := svc.Signup(ctx, SignupInput{FullName: "Ops", Email: "ops@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	promoted, created, err := svc.EnsureAdmin(ctx, "ops@example.com", "ignored", "")
	if err != nil || created || !promoted.IsAdmin() || promoted.ID != u.ID {
		t.Fatalf("promoted = %+v, %v, %v", promoted, created, err)
	}
	if _, err := svc.Authenticate(ctx, "ops@example.com", "secret1"); err != nil {
		t.Fatalf("promoted password changed: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("participants = %d, want 0", len(list))
	}
}
