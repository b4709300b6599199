package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/permissions"
	"github.com/angelmondragon/orderdesk-backend/pkg/auth"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsActor(t *testing.T) {
	userID, orgID := uuid.New(), uuid.New()
	token := mintTestToken(t, userID, orgID, enums.MemberRoleManager)

	var captured permissions.Actor
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		captured = actor
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID || captured.OrganizationID != orgID {
		t.Fatalf("unexpected actor %+v", captured)
	}
	if captured.Role != enums.MemberRoleManager {
		t.Fatalf("expected role manager got %s", captured.Role)
	}
}

func TestRequirePermission(t *testing.T) {
	cases := []struct {
		name string
		role enums.MemberRole
		want int
	}{
		{"owner settles", enums.MemberRoleOwner, http.StatusOK},
		{"staff cannot settle", enums.MemberRoleStaff, http.StatusForbidden},
		{"viewer cannot settle", enums.MemberRoleViewer, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequirePermission(enums.ResourceSettlements, enums.ActionCreate, nil)(okHandler())
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithActor(req.Context(), permissions.Actor{
				UserID:         uuid.New(),
				OrganizationID: uuid.New(),
				Role:           tc.role,
			}))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
		})
	}

	resp := httptest.NewRecorder()
	RequirePermission(enums.ResourceOrders, enums.ActionRead, nil)(okHandler()).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", resp.Code)
	}
}

func mintTestToken(t *testing.T, userID, orgID uuid.UUID, role enums.MemberRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
