package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/config"
	"github.com/duongquang05/marathon-portal/internal/handler"
	"github.com/duongquang05/marathon-portal/internal/lock"
	"github.com/duongquang05/marathon-portal/internal/middleware"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/queue"
	"github.com/duongquang05/marathon-portal/internal/repository"
	"github.com/duongquang05/marathon-portal/internal/repository/jsonrepo"
	"github.com/duongquang05/marathon-portal/internal/service"
	"github.com/duongquang05/marathon-portal/internal/utils"
)

const secret = "router-test-secret"

type app struct {
	e      *echo.Echo
	stores *repository.Stores
	admin  string
	seen   *identityRecorder
}

// identityRecorder is group middleware that notes which user id, if any,
// was on the context when it ran.
type identityRecorder struct {
	mu  sync.Mutex
	ids []int64
}

func (r *identityRecorder) mw(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, _ := middleware.UserID(c)
		r.mu.Lock()
		r.ids = append(r.ids, id)
		r.mu.Unlock()
		return next(c)
	}
}

func (r *identityRecorder) last() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return 0, false
	}
	return r.ids[len(r.ids)-1], true
}

// newApp wires the whole API over a JSON store in a temp dir, with the
// clock fixed at 2026-03-01.
func newApp(t *testing.T) *app {
	t.Helper()
	stores, err := jsonrepo.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	accounts := service.NewParticipantService(stores, cfg.BcryptCost)
	marathons := service.NewMarathonService(stores)
	parts := service.NewParticipationService(stores, lock.NewLocal(), queue.Nop{})
	parts.Now = now
	points := service.NewPassingPointService(stores)

	ph := handler.NewParticipantHandler(accounts, marathons, parts)
	ph.Now = now
	ah := handler.NewAdminHandler(accounts, marathons, parts, points)
	ah.Now = now

	seen := &identityRecorder{}
	e := echo.New()
	RegisterRoutes(e, &handler.HealthHandler{Stores: stores, Driver: config.DriverJSON})
	RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, stores.Tokens), seen.mw)
	RegisterParticipant(e, ph, secret, seen.mw)
	RegisterAdmin(e, ah, secret, []echo.MiddlewareFunc{seen.mw})
	RegisterPublic(e, handler.NewPublicHandler(points), seen.mw)

	admin, _, err := accounts.EnsureAdmin(context.Background(), "admin@example.com", "adminpass", "")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return &app{e: e, stores: stores, admin: token(t, admin), seen: seen}
}

func token(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, u.ID, u.Role, u.Email, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok.Token
}

func (a *app) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	expect(t, a.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)
	rec := a.do(t, http.MethodGet, "/api/health", "", nil)
	expect(t, rec, http.StatusOK)
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" || body["storage"] != "json" {
		t.Fatalf("health = %v", body)
	}
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"full_name": "Minh Le", "email": "minh@example.com", "password": "secret1",
	})
	expect(t, rec, http.StatusCreated)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"full_name": "Other", "email": "MINH@example.com", "password": "secret1",
	})
	expect(t, rec, http.StatusConflict)

	expect(t, a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "minh@example.com", "password": "nope123"}), http.StatusUnauthorized)

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "minh@example.com", "password": "secret1"})
	expect(t, rec, http.StatusOK)
	var login struct {
		User    model.User `json:"user"`
		Access  struct{ Token string }
		Refresh struct{ Token string }
	}
	decode(t, rec, &login)
	if login.User.Role != model.RoleParticipant || login.Access.Token == "" || login.Refresh.Token == "" {
		t.Fatalf("login = %+v", login)
	}

	rec = a.do(t, http.MethodGet, "/api/me", login.Access.Token, nil)
	expect(t, rec, http.StatusOK)

	rec = a.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": login.Refresh.Token})
	expect(t, rec, http.StatusOK)
	expect(t, a.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": login.Refresh.Token}), http.StatusUnauthorized)

	expect(t, a.do(t, http.MethodPost, "/api/auth/logout", login.Access.Token, nil), http.StatusNoContent)
	expect(t, a.do(t, http.MethodPost, "/api/auth/logout", "", nil), http.StatusBadRequest)
}

func TestParticipationFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/admin/marathons", a.admin, map[string]string{"race_name": "Saigon 42K", "race_date": "2026-04-12"})
	expect(t, rec, http.StatusCreated)
	var m model.Marathon
	decode(t, rec, &m)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"full_name": "Runner", "email": "runner@example.com", "password": "secret1",
	})
	expect(t, rec, http.StatusCreated)
	var reg struct {
		User   model.User `json:"user"`
		Access struct{ Token string }
	}
	decode(t, rec, &reg)
	runner := reg.Access.Token

	expect(t, a.do(t, http.MethodPost, "/api/admin/marathons", runner, map[string]string{"race_name": "x", "race_date": "2026-04-12"}), http.StatusForbidden)
	expect(t, a.do(t, http.MethodGet, "/api/marathons", "", nil), http.StatusUnauthorized)

	rec = a.do(t, http.MethodPost, "/api/participations", runner, map[string]any{"marathon_id": m.ID, "hotel": "Rex"})
	expect(t, rec, http.StatusCreated)
	expect(t, a.do(t, http.MethodPost, "/api/participations", runner, map[string]any{"marathon_id": m.ID}), http.StatusConflict)

	id := model.ParticipationID(m.ID, reg.User.ID)
	expect(t, a.do(t, http.MethodPost, "/api/admin/participations/"+id+"/accept", a.admin, map[string]any{"entry_number": 0}), http.StatusBadRequest)
	rec = a.do(t, http.MethodPost, "/api/admin/participations/"+id+"/accept", a.admin, map[string]any{"entry_number": "101"})
	expect(t, rec, http.StatusOK)
	var p model.Participation
	decode(t, rec, &p)
	if p.EntryNumber != 101 {
		t.Fatalf("entry number = %d, want 101", p.EntryNumber)
	}

	expect(t, a.do(t, http.MethodPost, "/api/admin/participations/"+id+"/result", a.admin, map[string]any{"time_record": "25:00", "standings": 1}), http.StatusBadRequest)
	rec = a.do(t, http.MethodPost, "/api/admin/participations/"+id+"/result", a.admin, map[string]any{"time_record": "3:07", "standings": "4"})
	expect(t, rec, http.StatusOK)
	decode(t, rec, &p)
	if p.TimeRecord == nil || *p.TimeRecord != "03:07:00" {
		t.Fatalf("time record = %v, want 03:07:00", p.TimeRecord)
	}

	rec = a.do(t, http.MethodGet, "/api/participations/my", runner, nil)
	expect(t, rec, http.StatusOK)
	var mine []model.ParticipationView
	decode(t, rec, &mine)
	if len(mine) != 1 || mine[0].State != model.StatusResulted || mine[0].RaceName != "Saigon 42K" {
		t.Fatalf("mine = %+v", mine)
	}

	expect(t, a.do(t, http.MethodPost, "/api/participations/"+id+"/cancel", runner, nil), http.StatusConflict)
	expect(t, a.do(t, http.MethodDelete, "/api/admin/participants/"+strconv.FormatInt(reg.User.ID, 10), a.admin, nil), http.StatusConflict)
	expect(t, a.do(t, http.MethodDelete, "/api/admin/marathons/"+strconv.FormatInt(m.ID, 10), a.admin, nil), http.StatusConflict)

	rec = a.do(t, http.MethodPost, "/api/admin/marathons/"+strconv.FormatInt(m.ID, 10)+"/cancel", a.admin, nil)
	expect(t, rec, http.StatusOK)
	rec = a.do(t, http.MethodGet, "/api/marathons", runner, nil)
	expect(t, rec, http.StatusOK)
	var active []model.Marathon
	decode(t, rec, &active)
	if len(active) != 0 {
		t.Fatalf("active marathons = %+v, want none", active)
	}
}

func TestCancelOthersForbidden(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	d, _ := model.ParseDate("2026-05-01")
	m := model.Marathon{RaceName: "Hanoi Half", RaceDate: d, Status: model.MarathonActive}
	if err := a.stores.Marathons.Insert(ctx, &m); err != nil {
		t.Fatalf("insert marathon: %v", err)
	}
	owner := model.User{FullName: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: model.RoleParticipant}
	other := model.User{FullName: "Other", Email: "other@example.com", PasswordHash: "x", Role: model.RoleParticipant}
	for _, u := range []*model.User{&owner, &other} {
		if err := a.stores.Users.Insert(ctx, u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	if err := a.stores.Participations.Insert(ctx, model.Participation{MarathonID: m.ID, UserID: owner.ID, EntryNumber: -owner.ID}); err != nil {
		t.Fatalf("insert participation: %v", err)
	}
	id := model.ParticipationID(m.ID, owner.ID)

	expect(t, a.do(t, http.MethodPost, "/api/participations/"+id+"/cancel", token(t, other), nil), http.StatusForbidden)
	expect(t, a.do(t, http.MethodPost, "/api/participations/bogus/cancel", token(t, owner), nil), http.StatusBadRequest)
	expect(t, a.do(t, http.MethodPost, "/api/admin/participations/"+id+"/cancel", a.admin, nil), http.StatusOK)
}

func TestPassingPointsPublicAndAdmin(t *testing.T) {
	a := newApp(t)
	expect(t, a.do(t, http.MethodPost, "/api/admin/passing-points", a.admin, map[string]any{"description": "nameless"}), http.StatusBadRequest)
	rec := a.do(t, http.MethodPost, "/api/admin/passing-points", a.admin, map[string]any{"point_name": "Start", "display_order": 1})
	expect(t, rec, http.StatusCreated)
	var p model.PassingPoint
	decode(t, rec, &p)

	rec = a.do(t, http.MethodGet, "/api/passing-points", "", nil)
	expect(t, rec, http.StatusOK)
	var list []model.PassingPoint
	decode(t, rec, &list)
	if len(list) != 1 || list[0].PointName != "Start" {
		t.Fatalf("list = %+v", list)
	}
	ppID := strconv.FormatInt(p.ID, 10)
	path := "/api/passing-points/" + ppID
	expect(t, a.do(t, http.MethodGet, path, "", nil), http.StatusOK)
	expect(t, a.do(t, http.MethodDelete, "/api/admin/passing-points/"+ppID, a.admin, nil), http.StatusNoContent)
	expect(t, a.do(t, http.MethodGet, path, "", nil), http.StatusNotFound)
}

func TestGroupMiddlewareRunsAfterAuth(t *testing.T) {
	a := newApp(t)
	admin, err := a.stores.Users.FindByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}

	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"full_name": "Runner", "email": "runner@example.com", "password": "secret1",
	})
	expect(t, rec, http.StatusCreated)
	var reg struct {
		User   model.User `json:"user"`
		Access struct{ Token string }
	}
	decode(t, rec, &reg)
	if id, ok := a.seen.last(); !ok || id != 0 {
		t.Fatalf("auth group id = %d (ran %v), want anonymous", id, ok)
	}

	tests := []struct {
		name   string
		path   string
		bearer string
		want   int64
	}{
		{"participant", "/api/me", reg.Access.Token, reg.User.ID},
		{"admin", "/api/admin/marathons", a.admin, admin.ID},
		{"public", "/api/passing-points", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expect(t, a.do(t, http.MethodGet, tt.path, tt.bearer, nil), http.StatusOK)
			if id, ok := a.seen.last(); !ok || id != tt.want {
				t.Fatalf("user id seen = %d (ran %v), want %d", id, ok, tt.want)
			}
		})
	}

	// rejected before the group middleware runs
	before := len(a.seen.ids)
	expect(t, a.do(t, http.MethodGet, "/api/me", "", nil), http.StatusUnauthorized)
	if len(a.seen.ids) != before {
		t.Fatalf("group middleware ran for an unauthenticated request")
	}
}
