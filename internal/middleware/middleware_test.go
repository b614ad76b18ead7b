package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/config"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/utils"
)

const testSecret = "test-secret"

func protected(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/whoami", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no id")
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c), "email": c.Get(CtxEmail)})
	}, mw...)
}

func bearer(t *testing.T, secret string, id int64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, "runner@example.com", 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	protected(e, JWTAuth(testSecret))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized},
		{name: "wrong secret", header: bearer(t, "other", 7, model.RoleParticipant), want: http.StatusUnauthorized},
		{name: "valid", header: bearer(t, testSecret, 7, model.RoleParticipant), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && !strings.Contains(rec.Body.String(), `"id":7`) {
				t.Fatalf("body = %s, want id 7", rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	protected(e, JWTAuth(testSecret), RequireRole(model.RoleAdmin))

	for _, tt := range []struct {
		role string
		want int
	}{
		{model.RoleParticipant, http.StatusForbidden},
		{model.RoleAdmin, http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(echo.HeaderAuthorization, bearer(t, testSecret, 1, tt.role))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("role %s status = %d, want %d", tt.role, rec.Code, tt.want)
		}
	}
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil),
	)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Fatalf("X-Cache set without redis")
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/passing-points", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/passing-points")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	if got, want := buildRateKey(cfg, c), "rl:ip:10.0.0.9:user:anon:route:GET /api/passing-points"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
	c.Set(CtxUserID, int64(12))
	cfg.KeyStrategy = "user"
	if got, want := buildRateKey(cfg, c), "rl:user:12"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/passing-points/"+id, nil), httptest.NewRecorder())
		c.SetPath("/api/passing-points/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c)
	}
	if key("1") == key("2") {
		t.Fatal("distinct ids share a cache key")
	}
	if !strings.HasPrefix(key("1"), "cache:") {
		t.Fatalf("key = %q, want cache: prefix", key("1"))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decode = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Fatal("short payload decoded")
	}
}
