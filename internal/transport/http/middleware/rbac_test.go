package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/user-service/internal/domain"
)

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name     string
		actual   domain.Role
		required []domain.Role
		allowed  bool
	}{
		{"admin on admin route", domain.RoleAdmin, []domain.Role{domain.RoleAdmin}, true},
		{"admin satisfies moderator", domain.RoleAdmin, []domain.Role{domain.RoleModerator}, true},
		{"moderator on admin route", domain.RoleModerator, []domain.Role{domain.RoleAdmin}, false},
		{"user on moderator route", domain.RoleUser, []domain.Role{domain.RoleModerator}, false},
		{"user in explicit set", domain.RoleUser, []domain.Role{domain.RoleUser, domain.RoleAdmin}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			we := &writeErrRecorder{}
			nx := &nextRecorder{}

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u-1", Role: tc.actual}))

			RequireRoles(we.fn, tc.required...)(nx).ServeHTTP(httptest.NewRecorder(), req)

			if tc.allowed {
				if nx.calls != 1 || we.calls != 0 {
					t.Fatalf("expected pass, next=%d err=%v", nx.calls, we.last)
				}
				return
			}
			if nx.calls != 0 {
				t.Fatalf("expected next not called")
			}
			if !domain.Is(we.last, "insufficient_permissions") {
				t.Fatalf("expected insufficient_permissions, got %v", we.last)
			}
		})
	}
}

func TestRequireRoles_MetaCarriesRequiredAndActual(t *testing.T) {
	we := &writeErrRecorder{}
	req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "m-1", Role: domain.RoleModerator}))

	RequireRoles(we.fn, domain.RoleAdmin)(&nextRecorder{}).ServeHTTP(httptest.NewRecorder(), req)

	de := domain.AsDomain(we.last)
	req2, _ := de.Meta["required"].([]string)
	if len(req2) != 1 || req2[0] != "admin" {
		t.Fatalf("unexpected required: %+v", de.Meta)
	}
	if de.Meta["actual"] != "moderator" {
		t.Fatalf("unexpected actual: %+v", de.Meta)
	}
}

func TestRequireRoles_WithoutAuth_ReturnsTokenMissing(t *testing.T) {
	we := &writeErrRecorder{}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	RequireRoles(we.fn, domain.RoleUser)(&nextRecorder{}).ServeHTTP(httptest.NewRecorder(), req)

	if !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing, got %v", we.last)
	}
}
