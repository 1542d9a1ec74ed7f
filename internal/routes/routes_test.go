package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/config"
	"github.com/fieldpay/fieldpay/internal/logging"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := config.Config{
		AppName:                 "fieldpay-test",
		AppEnv:                  "dev",
		SeedDisbursementAccount: "Office Cash",
	}
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, actor string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(payload))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", string(raw), err)
		}
	}
	return resp.StatusCode, decoded
}

func TestHealthAndPing(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, fiber.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", status)
	}
	status, body := doJSON(t, app, fiber.MethodGet, "/api/v1/ping", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("ping: expected ok, got %d %v", status, body)
	}
}

func TestDevSeedsDisbursementAccount(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/accounts", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	defer resp.Body.Close()

	var accounts []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0]["ModeName"] != "Office Cash" {
		t.Fatalf("expected seeded Office Cash account, got %v", accounts)
	}
}

func TestCollectionToExpenseFlow(t *testing.T) {
	app := newTestApp(t)

	accountID := seededAccountID(t, app)

	// A collector brings in 5000 cash against the seeded account.
	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/collections", "agent", map[string]any{
		"collector_id": "agent",
		"account_id":   accountID,
		"amount":       5_000,
		"instrument":   "cash",
	})
	if status != http.StatusCreated {
		t.Fatalf("create collection: expected 201, got %d %v", status, body)
	}
	collectionID := entityID(t, body, "collection")

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/collections/"+collectionID+"/verify", "supervisor", nil)
	if status != http.StatusOK {
		t.Fatalf("verify collection: expected 200, got %d", status)
	}

	// The funded account can now settle an expense.
	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/expenses", "owner1", map[string]any{
		"owner_id":   "owner1",
		"amount":     2_000,
		"instrument": "upi",
		"category":   "travel",
	})
	if status != http.StatusCreated {
		t.Fatalf("create expense: expected 201, got %d %v", status, body)
	}
	expenseID := entityID(t, body, "expense")

	// Self-approval is refused.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/expenses/"+expenseID+"/approve", "owner1", nil)
	if status != http.StatusForbidden {
		t.Fatalf("self-approve: expected 403, got %d", status)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/expenses/"+expenseID+"/approve", "manager", nil)
	if status != http.StatusOK {
		t.Fatalf("approve expense: expected 200, got %d", status)
	}

	// A second approval conflicts.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/expenses/"+expenseID+"/approve", "manager", nil)
	if status != http.StatusConflict {
		t.Fatalf("double approve: expected 409, got %d", status)
	}

	// The owner received the reimbursement.
	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/wallets/owner1", "", nil)
	if status != http.StatusOK {
		t.Fatalf("wallet: expected 200, got %d", status)
	}
	balances, _ := body["balances"].(map[string]any)
	if got, _ := balances["upi"].(float64); got != 2_000 {
		t.Fatalf("expected owner upi balance 2000, got %v", balances)
	}

	// Reporting sees the system-wide flow.
	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/reports/wallets?scope=all", "", nil)
	if status != http.StatusOK {
		t.Fatalf("report: expected 200, got %d %v", status, body)
	}
}

func TestFundAndWithdraw(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/wallets/u1/fund", "u1", map[string]any{
		"instrument": "cash",
		"amount":     3_000,
	})
	if status != http.StatusOK {
		t.Fatalf("fund: expected 200, got %d %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/wallets/u1/withdraw", "u1", map[string]any{
		"instrument": "cash",
		"amount":     5_000,
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("over-withdraw: expected 422, got %d %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/wallets/u1/fund", "u1", map[string]any{
		"instrument": "gold",
		"amount":     100,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bad instrument: expected 400, got %d %v", status, body)
	}
}

func seededAccountID(t *testing.T, app *fiber.App) string {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/accounts", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	defer resp.Body.Close()
	var accounts []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	if len(accounts) == 0 {
		t.Fatalf("no seeded account")
	}
	id, _ := accounts[0]["ID"].(string)
	if id == "" {
		t.Fatalf("account has no ID: %v", accounts[0])
	}
	return id
}

func entityID(t *testing.T, body map[string]any, key string) string {
	t.Helper()
	entity, _ := body[key].(map[string]any)
	id, _ := entity["ID"].(string)
	if id == "" {
		t.Fatalf("response has no %s.ID: %v", key, body)
	}
	return id
}
