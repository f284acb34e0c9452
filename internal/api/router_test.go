package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fairshare/internal/auth"
	"fairshare/internal/mailer"
	"fairshare/internal/service"
	"fairshare/internal/storage/sqlite"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dir, err := os.MkdirTemp("", "fairshare-api-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	bills := service.NewBillService(store, mailer.LogSender{}, "https://fairshare.test")
	accounts := service.NewAuthService(authenticator, jwtManager, store)

	return NewRouter(bills, accounts, jwtManager)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func billBody() map[string]any {
	return map[string]any{
		"billName":    "Dinner",
		"totalAmount": 90,
		"splitMethod": "equal",
		"participants": []map[string]any{
			{"name": "Alice", "email": "alice@example.com"},
			{"name": "Bob", "email": "bob@example.com"},
			{"name": "Carol", "email": "carol@example.com"},
		},
		"createdByName":  "Alice",
		"createdByEmail": "alice@example.com",
	}
}

func registerUser(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec, resp := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"fullName": "Alice",
		"password": "correct horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %v", rec.Code, resp)
	}
	data := resp["data"].(map[string]any)
	return data["token"].(string)
}

func TestAuthEndpoints(t *testing.T) {
	handler := newTestRouter(t)
	token := registerUser(t, handler)

	t.Run("login", func(t *testing.T) {
		rec, resp := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "alice@example.com",
			"password": "correct horse",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("login returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		if data["token"] == "" {
			t.Error("expected a session token")
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "alice@example.com",
			"password": "wrong horse",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("me", func(t *testing.T) {
		rec, resp := doJSON(t, handler, http.MethodGet, "/api/auth/me", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("me returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		if data["email"] != "alice@example.com" {
			t.Errorf("email = %v", data["email"])
		}
	})

	t.Run("me without token", func(t *testing.T) {
		rec, _ := doJSON(t, handler, http.MethodGet, "/api/auth/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", map[string]any{
			"email":    "alice@example.com",
			"fullName": "Alice Again",
			"password": "correct horse",
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})
}

func TestBillEndpoints(t *testing.T) {
	handler := newTestRouter(t)
	token := registerUser(t, handler)

	createBill := func(t *testing.T, token string) string {
		t.Helper()
		rec, resp := doJSON(t, handler, http.MethodPost, "/api/bills", token, billBody())
		if rec.Code != http.StatusCreated {
			t.Fatalf("create returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		return data["billId"].(string)
	}

	t.Run("guest create and shareable read", func(t *testing.T) {
		billID := createBill(t, "")

		rec, resp := doJSON(t, handler, http.MethodGet, "/api/bills/"+billID, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		if data["billName"] != "Dinner" {
			t.Errorf("billName = %v", data["billName"])
		}
		participants := data["participants"].([]any)
		if len(participants) != 3 {
			t.Fatalf("expected 3 participants, got %d", len(participants))
		}
		first := participants[0].(map[string]any)
		if first["amountOwed"] != 30.0 {
			t.Errorf("amountOwed = %v, want 30", first["amountOwed"])
		}
	})

	t.Run("invalid split rejected with 400", func(t *testing.T) {
		body := billBody()
		body["splitMethod"] = "percentage"
		rec, resp := doJSON(t, handler, http.MethodPost, "/api/bills", "", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %v", rec.Code, resp)
		}
		if resp["success"] != false {
			t.Error("expected success=false")
		}
	})

	t.Run("unknown bill returns 404", func(t *testing.T) {
		rec, _ := doJSON(t, handler, http.MethodGet, "/api/bills/nope", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("list requires auth", func(t *testing.T) {
		rec, _ := doJSON(t, handler, http.MethodGet, "/api/bills", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("list and stats for creator", func(t *testing.T) {
		createBill(t, token)

		rec, resp := doJSON(t, handler, http.MethodGet, "/api/bills?page=1&limit=10", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		if data["total"].(float64) < 1 {
			t.Errorf("total = %v, want at least 1", data["total"])
		}

		rec, resp = doJSON(t, handler, http.MethodGet, "/api/bills/stats", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("stats returned %d: %v", rec.Code, resp)
		}
	})

	t.Run("payment lifecycle over http", func(t *testing.T) {
		billID := createBill(t, "")

		rec, resp := doJSON(t, handler, http.MethodPost, "/api/bills/"+billID+"/payments", "", map[string]any{
			"participantEmail": "bob@example.com",
			"isPaid":           true,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("payment returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		if data["isSettled"] != false {
			t.Error("bill settled with participants unpaid")
		}

		rec, _ = doJSON(t, handler, http.MethodPost, "/api/bills/"+billID+"/payments", "", map[string]any{
			"participantEmail": "mallory@example.com",
			"isPaid":           true,
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown participant, got %d", rec.Code)
		}
	})

	t.Run("update patch over http", func(t *testing.T) {
		billID := createBill(t, "")

		rec, resp := doJSON(t, handler, http.MethodPut, "/api/bills/"+billID, "", map[string]any{
			"billName": "Team Dinner",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("update returned %d: %v", rec.Code, resp)
		}
		data := resp["data"].(map[string]any)
		if data["billName"] != "Team Dinner" {
			t.Errorf("billName = %v", data["billName"])
		}
		if data["totalAmount"] != 90.0 {
			t.Errorf("totalAmount changed: %v", data["totalAmount"])
		}
	})

	t.Run("creator-owned bill protected from others", func(t *testing.T) {
		billID := createBill(t, token)

		rec, _ := doJSON(t, handler, http.MethodDelete, "/api/bills/"+billID, "", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 for guest delete, got %d", rec.Code)
		}

		rec, _ = doJSON(t, handler, http.MethodDelete, "/api/bills/"+billID, token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("creator delete returned %d", rec.Code)
		}
	})

	t.Run("healthz", func(t *testing.T) {
		rec, _ := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("healthz returned %d", rec.Code)
		}
	})
}
