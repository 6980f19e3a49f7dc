package front

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/config"
	"github.com/growtradenfts/platform/internal/dbtest"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/ratelimit"
	"github.com/growtradenfts/platform/internal/security"
	"github.com/shopspring/decimal"
)

const testWallet = "0x52908400098527886e0f7030069857d2e4169ee7"

func newRouter(t *testing.T, limiter *ratelimit.Manager) (*gin.Engine, *core.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := dbtest.Open(t)
	svc := core.NewServices(conn, config.JWTConfig{Secret: "front-secret", Expiry: time.Hour}, nil, limiter)
	r := gin.New()
	RegisterFrontRoutes(r, svc)
	return r, svc
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if errUnmarshal := json.Unmarshal(rec.Body.Bytes(), &out); errUnmarshal != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, errUnmarshal, rec.Body.String())
		}
	}
	return rec, out
}

func signUp(t *testing.T, r *gin.Engine, email, code string) string {
	t.Helper()
	rec, _ := do(t, r, http.MethodPost, "/v0/front/register", "", map[string]string{
		"name":           "Member",
		"email":          email,
		"password":       "password1",
		"wallet_address": testWallet,
		"referral_code":  code,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec, body := do(t, r, http.MethodPost, "/v0/front/login", "", map[string]string{
		"email":    email,
		"password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func TestRegisterLoginActivateFlow(t *testing.T) {
	r, _ := newRouter(t, nil)
	token := signUp(t, r, "member@example.com", "")

	rec, body := do(t, r, http.MethodGet, "/v0/front/user/profile", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	user, _ := body["user"].(map[string]any)
	if user["is_active"] != false {
		t.Fatalf("new member should be inactive: %v", user)
	}

	rec, _ = do(t, r, http.MethodPost, "/v0/front/wallet/activate", token, map[string]string{
		"tx_hash":        "0xabc",
		"wallet_address": testWallet,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec, body = do(t, r, http.MethodPost, "/v0/front/wallet/activate", token, map[string]string{
		"tx_hash":        "0xdef",
		"wallet_address": testWallet,
	})
	if rec.Code != http.StatusConflict || body["error"] != "AlreadyActive" {
		t.Fatalf("second activation = %d %v", rec.Code, body)
	}

	rec, body = do(t, r, http.MethodGet, "/v0/front/wallet/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d", rec.Code)
	}
	if raw, _ := body["balance"].(string); !decimal.RequireFromString(raw).Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance = %v", body["balance"])
	}
}

func TestBuySpendsBalanceThenReportsKind(t *testing.T) {
	r, _ := newRouter(t, nil)
	token := signUp(t, r, "buyer@example.com", "")

	rec, body := do(t, r, http.MethodPost, "/v0/front/nft/buy", token, nil)
	if rec.Code != http.StatusForbidden || body["error"] != "TradingDisabled" {
		t.Fatalf("inactive buy = %d %v", rec.Code, body)
	}

	do(t, r, http.MethodPost, "/v0/front/wallet/activate", token, map[string]string{
		"tx_hash":        "0xabc",
		"wallet_address": testWallet,
	})
	rec, _ = do(t, r, http.MethodPost, "/v0/front/nft/buy", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy = %d %s", rec.Code, rec.Body.String())
	}
	rec, body = do(t, r, http.MethodPost, "/v0/front/nft/buy", token, nil)
	if rec.Code != http.StatusUnprocessableEntity || body["error"] != "InsufficientBalance" {
		t.Fatalf("second buy = %d %v", rec.Code, body)
	}

	rec, body = do(t, r, http.MethodGet, "/v0/front/nft/mine", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine = %d", rec.Code)
	}
	if nfts, _ := body["nfts"].([]any); len(nfts) != 1 {
		t.Fatalf("owned nfts = %v", body["nfts"])
	}
}

func TestRegisterRejectsUnknownReferralCode(t *testing.T) {
	r, _ := newRouter(t, nil)
	rec, body := do(t, r, http.MethodPost, "/v0/front/register", "", map[string]string{
		"name":           "Member",
		"email":          "orphan@example.com",
		"password":       "password1",
		"wallet_address": testWallet,
		"referral_code":  "NOPE99",
	})
	if rec.Code != http.StatusBadRequest || body["error"] != "InvalidReferralCode" {
		t.Fatalf("register = %d %v", rec.Code, body)
	}
}

func TestAuthMiddleware(t *testing.T) {
	r, svc := newRouter(t, nil)

	rec, _ := do(t, r, http.MethodGet, "/v0/front/user/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token = %d", rec.Code)
	}
	rec, _ = do(t, r, http.MethodGet, "/v0/front/user/profile", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", rec.Code)
	}

	frozen := dbtest.CreateUser(t, svc.DB, func(u *models.User) { u.IsFrozen = true })
	token, errToken := security.GenerateUserToken(svc.JWT.Secret, frozen.ID, time.Hour)
	if errToken != nil {
		t.Fatalf("token: %v", errToken)
	}
	rec, _ = do(t, r, http.MethodGet, "/v0/front/user/profile", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("frozen user = %d", rec.Code)
	}

	adminToken, errAdmin := security.GenerateAdminToken(svc.JWT.Secret, frozen.ID, time.Hour)
	if errAdmin != nil {
		t.Fatalf("admin token: %v", errAdmin)
	}
	rec, _ = do(t, r, http.MethodGet, "/v0/front/user/profile", adminToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("admin-scoped token on front route = %d", rec.Code)
	}
}

func TestRateLimitedOperation(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{Limit: 1}
	}, func() time.Time { return fixed }, nil)
	r, _ := newRouter(t, limiter)
	token := signUp(t, r, "limited@example.com", "")

	rec, _ := do(t, r, http.MethodPost, "/v0/front/wallet/withdraw", token, map[string]any{
		"amount":         "5",
		"wallet_address": testWallet,
	})
	if rec.Code == http.StatusTooManyRequests {
		t.Fatalf("first request should not be throttled")
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("limit header = %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec, body := do(t, r, http.MethodPost, "/v0/front/wallet/withdraw", token, map[string]any{
		"amount":         "5",
		"wallet_address": testWallet,
	})
	if rec.Code != http.StatusTooManyRequests || body["error"] != "RateLimited" {
		t.Fatalf("second request = %d %v", rec.Code, body)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}

	rec, _ = do(t, r, http.MethodGet, "/v0/front/wallet/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unthrottled route = %d", rec.Code)
	}
}
