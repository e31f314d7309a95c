package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "tutor-register"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("dev-1", RoleAdmin, testIssuer, testKey, time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := Parse(pair.AccessToken, testKey, testIssuer)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "dev-1" || !claims.IsAdmin() || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
	if !pair.RefreshExp.After(pair.AccessExp) {
		t.Errorf("refresh should outlive access: %s vs %s", pair.RefreshExp, pair.AccessExp)
	}
}

func TestParse_Rejects(t *testing.T) {
	pair, err := Issue("dev-1", RoleScanner, testIssuer, testKey, time.Hour, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := Issue("dev-1", RoleScanner, testIssuer, testKey, -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		key    string
		issuer string
	}{
		{"wrong key", pair.AccessToken, "other", testIssuer},
		{"wrong issuer", pair.AccessToken, testKey, "someone-else"},
		{"refresh as access", pair.RefreshToken, testKey, testIssuer},
		{"expired", expired.AccessToken, testKey, testIssuer},
		{"garbage", "not.a.token", testKey, testIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.key, tt.issuer); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseRefresh(t *testing.T) {
	pair, err := Issue("dev-2", RoleScanner, testIssuer, testKey, time.Hour, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseRefresh(pair.RefreshToken, testKey, testIssuer)
	if err != nil || claims.Subject != "dev-2" || claims.Role != RoleScanner {
		t.Fatalf("ParseRefresh = %+v, %v", claims, err)
	}
	if _, err := ParseRefresh(pair.AccessToken, testKey, testIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
}

func TestRoleForKey(t *testing.T) {
	tests := []struct {
		name, key, enroll, admin string
		open                     bool
		want                     string
		wantErr                  bool
	}{
		{"admin key", "a", "e", "a", false, RoleAdmin, false},
		{"enroll key", "e", "e", "a", false, RoleScanner, false},
		{"wrong key", "x", "e", "a", true, "", true},
		{"open without keys", "", "", "", true, RoleScanner, false},
		{"closed without keys", "", "", "", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoleForKey(tt.key, tt.enroll, tt.admin, tt.open)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("RoleForKey = %q, %v", got, err)
			}
		})
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", DeviceAuth(testKey, testIssuer))
	g.GET("/any", func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})
	g.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	r := newRouter()
	scanner, _ := Issue("scan-1", RoleScanner, testIssuer, testKey, time.Hour, time.Hour)
	admin, _ := Issue("adm-1", RoleAdmin, testIssuer, testKey, time.Hour, time.Hour)

	if w := doGet(r, "/any", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", w.Code)
	}
	if w := doGet(r, "/any", scanner.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh token: %d", w.Code)
	}
	if w := doGet(r, "/any", scanner.AccessToken); w.Code != http.StatusOK || w.Body.String() != "scan-1" {
		t.Errorf("scanner /any: %d %s", w.Code, w.Body.String())
	}
	if w := doGet(r, "/admin", scanner.AccessToken); w.Code != http.StatusForbidden {
		t.Errorf("scanner /admin: %d", w.Code)
	}
	if w := doGet(r, "/admin", admin.AccessToken); w.Code != http.StatusOK {
		t.Errorf("admin /admin: %d", w.Code)
	}
}

func TestMiddleware_QueryToken(t *testing.T) {
	r := newRouter()
	scanner, _ := Issue("scan-1", RoleScanner, testIssuer, testKey, time.Hour, time.Hour)

	if w := doGet(r, "/any?token="+scanner.AccessToken, ""); w.Code != http.StatusOK || w.Body.String() != "scan-1" {
		t.Errorf("query token: %d %s", w.Code, w.Body.String())
	}
	if w := doGet(r, "/any?token=", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("empty query token: %d", w.Code)
	}
	if w := doGet(r, "/any?token="+scanner.RefreshToken, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh token in query: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/any?token="+scanner.AccessToken, nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("non-bearer header with query token: %d", w.Code)
	}
}
