package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledgerdesk/backend/internal/commission"
	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/service"
	"ledgerdesk/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, commission.Float{}, nil, 0, nil)
	auth := NewAuthManager("test-secret-key-with-enough-length", time.Hour, false)

	return New(svc, auth, "http://localhost:5173", nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (status %d)", err, rec.Code)
	}
	return out
}

// setupOwner creates the first account and returns its bearer token.
func setupOwner(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/auth/setup", "", domain.SetupRequest{Username: "owner", Password: "owner-pass"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	return login(t, handler, "owner", "owner-pass")
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	return decodeBody[domain.LoginResponse](t, rec).AccessToken
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestSetupFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/auth/check-setup", "", nil)
	if body := decodeBody[map[string]bool](t, rec); !body["setupRequired"] {
		t.Fatalf("expected setup to be required")
	}

	token := setupOwner(t, handler)

	rec = doJSON(t, handler, http.MethodPost, "/api/auth/setup", "", domain.SetupRequest{Username: "intruder", Password: "intruder-pass"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second setup, got %d", rec.Code)
	}
	if body := decodeBody[map[string]any](t, rec); body["reason"] != "setup_completed" {
		t.Fatalf("expected setup_completed reason, got %v", body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	me := decodeBody[map[string]any](t, rec)
	if me["username"] != "owner" || me["role"] != domain.RoleSuperadmin {
		t.Fatalf("unexpected me: %v", me)
	}
	if _, leaked := me["password"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	handler := newTestAPI(t).Handler()
	setupOwner(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Username: "owner", Password: "owner-pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieName {
			session = c
		}
	}
	if session == nil || !session.HttpOnly || session.Value == "" {
		t.Fatalf("expected httpOnly session cookie, got %+v", session)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	handler.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("cookie auth: expected 200, got %d", me.Code)
	}

	logout := doJSON(t, handler, http.MethodPost, "/api/auth/logout", "", nil)
	cleared := logout.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie on logout, got %+v", cleared)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	handler := newTestAPI(t).Handler()
	setupOwner(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Username: "owner", Password: "nope-nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSaleToPaymentFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := setupOwner(t, handler)

	contractorID := int64(1)
	rec := doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleRequest{
		Products: []domain.SaleProductLine{{ProductID: 1, Quantity: 2}},
		Services: []domain.SaleServiceLine{{ServiceID: 1, ContractorID: &contractorID, ClientName: "Ana"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	sale := decodeBody[domain.SaleResponse](t, rec)
	if !sale.Success || len(sale.SaleIDs) != 2 {
		t.Fatalf("unexpected sale response: %+v", sale)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/contractors/1/unpaid-sales", token, nil)
	unpaid := decodeBody[[]domain.UnpaidSale](t, rec)
	if len(unpaid) != 2 {
		t.Fatalf("expected 2 unpaid rows, got %+v", unpaid)
	}
	total := 0.0
	for _, row := range unpaid {
		total += row.ContractorEarnings
	}
	if total != 34 {
		t.Fatalf("expected 34 owed, got %v", total)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/payments/contractor", token, domain.ContractorPaymentRequest{
		ContractorID: 1,
		SaleIDs:      []int64{sale.SaleIDs[0]},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	payment := decodeBody[domain.ContractorPaymentResponse](t, rec)
	if payment.TotalPaid != 4 || len(payment.PaidSaleIDs) != 1 {
		t.Fatalf("unexpected payment: %+v", payment)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/contractors/1", token, nil)
	if c := decodeBody[domain.Contractor](t, rec); c.AccumulatedCommission != 0 {
		t.Fatalf("expected balance reset after partial payment, got %v", c.AccumulatedCommission)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/payments/contractor", token, domain.ContractorPaymentRequest{
		ContractorID: 1,
		SaleIDs:      sale.SaleIDs,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate payment: expected 409, got %d", rec.Code)
	}
	if body := decodeBody[map[string]any](t, rec); body["reason"] != "already_paid" {
		t.Fatalf("expected already_paid reason, got %v", body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/contractors/1/earnings", token, nil)
	earnings := decodeBody[domain.ContractorEarnings](t, rec)
	if earnings.ProductCommissions != 4 || earnings.ServiceEarnings != 30 {
		t.Fatalf("unexpected earnings: %+v", earnings)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/payments/contractor?limit=10", token, nil)
	history := decodeBody[pageResponse[domain.PaymentHistoryEntry]](t, rec)
	if history.Total != 1 || history.Limit != 10 || history.Items[0].ContractorName != "Yolanda Reyes" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSaleErrorsMapToStatus(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := setupOwner(t, handler)

	cases := []struct {
		name   string
		body   domain.SaleRequest
		status int
		reason string
	}{
		{"insufficient stock", domain.SaleRequest{Products: []domain.SaleProductLine{{ProductID: 1, Quantity: 99}}}, http.StatusBadRequest, "insufficient_stock"},
		{"empty", domain.SaleRequest{}, http.StatusBadRequest, "empty_sale"},
		{"unknown product", domain.SaleRequest{Products: []domain.SaleProductLine{{ProductID: 404, Quantity: 1}}}, http.StatusNotFound, ""},
		{"invalid quantity", domain.SaleRequest{Products: []domain.SaleProductLine{{ProductID: 1, Quantity: -1}}}, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/sales", token, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			body := decodeBody[map[string]any](t, rec)
			if tc.reason != "" && body["reason"] != tc.reason {
				t.Fatalf("expected reason %s, got %v", tc.reason, body)
			}
		})
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleRequest{Products: []domain.SaleProductLine{{ProductID: 1, Quantity: 0}}})
	body := decodeBody[map[string]any](t, rec)
	details, ok := body["details"].([]any)
	if !ok || len(details) != 1 {
		t.Fatalf("expected one validation detail, got %v", body)
	}
	if field := details[0].(map[string]any)["field"]; field != "products[0].quantity" {
		t.Fatalf("unexpected field %v", field)
	}
}

func TestListSalesPagination(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := setupOwner(t, handler)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleRequest{
			Services: []domain.SaleServiceLine{{ServiceID: 2}},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("sale %d: %d", i, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/sales?limit=2&offset=1", token, nil)
	page := decodeBody[pageResponse[domain.SaleListEntry]](t, rec)
	if page.Total != 3 || len(page.Items) != 2 || page.Offset != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sales?from=not-a-date", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestRoleGuards(t *testing.T) {
	handler := newTestAPI(t).Handler()
	owner := setupOwner(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/users", owner, domain.UserCreateRequest{Username: "clerk", Password: "clerk-pass", Role: domain.RoleController})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	clerk := login(t, handler, "clerk", "clerk-pass")

	if rec := doJSON(t, handler, http.MethodGet, "/api/products", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/products", clerk, nil); rec.Code != http.StatusOK {
		t.Fatalf("controller list products: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/payments/contractor", clerk, domain.ContractorPaymentRequest{ContractorID: 1, SaleIDs: []int64{1}}); rec.Code != http.StatusForbidden {
		t.Fatalf("controller payment: expected 403, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/users", clerk, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("controller list users: expected 403, got %d", rec.Code)
	}
}

func TestContractorDeleteGuardOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := setupOwner(t, handler)

	contractorID := int64(2)
	doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleRequest{
		Services: []domain.SaleServiceLine{{ServiceID: 1, ContractorID: &contractorID}},
	})
	rec := doJSON(t, handler, http.MethodDelete, "/api/contractors/2", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody[map[string]any](t, rec); body["reason"] != "unpaid_balance" {
		t.Fatalf("expected unpaid_balance, got %v", body)
	}

	if rec := doJSON(t, handler, http.MethodDelete, "/api/contractors/abc", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/contractors/99", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAppointmentConflictOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := setupOwner(t, handler)

	contractorID := int64(1)
	start := time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)
	body := domain.AppointmentRequest{Title: "Trim", StartTime: start, EndTime: start.Add(time.Hour), ContractorID: &contractorID}

	rec := doJSON(t, handler, http.MethodPost, "/api/appointments", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if appt := decodeBody[domain.Appointment](t, rec); appt.CreatedBy != 1 {
		t.Fatalf("expected creator from token, got %d", appt.CreatedBy)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/appointments", token, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/appointments?from=2030-01-02&to=2030-01-02&contractorId=1", token, nil)
	if list := decodeBody[[]domain.Appointment](t, rec); len(list) != 1 {
		t.Fatalf("expected 1 appointment in range, got %d", len(list))
	}
}

func TestSalesReportExport(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := setupOwner(t, handler)
	doJSON(t, handler, http.MethodPost, "/api/sales", token, domain.SaleRequest{Services: []domain.SaleServiceLine{{ServiceID: 1}}})

	rec := doJSON(t, handler, http.MethodGet, "/api/reports/sales?format=csv", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Haircut,Service,1,50.00,50.00") {
		t.Fatalf("expected haircut row, got %q", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/reports/sales?format=pdf", token, nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("pdf: unexpected response %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/reports/sales?format=xlsx", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", rec.Code)
	}
}

func TestDeleteUserOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	owner := setupOwner(t, handler)
	me := decodeBody[domain.UserAccount](t, doJSON(t, handler, http.MethodGet, "/api/auth/me", owner, nil))

	rec := doJSON(t, handler, http.MethodPost, "/api/users", owner, domain.UserCreateRequest{Username: "clerk", Password: "clerk-pass", Role: domain.RoleController})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	clerk := decodeBody[domain.UserAccount](t, rec)
	clerkToken := login(t, handler, "clerk", "clerk-pass")

	if rec := doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/users/%d", me.ID), clerkToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("controller delete: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/users/%d", me.ID), owner, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("superadmin delete: expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
	if body := decodeBody[map[string]any](t, rec); body["reason"] != "protected_account" {
		t.Fatalf("expected protected_account, got %v", body)
	}

	if rec := doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/users/%d", clerk.ID), owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete clerk: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/users/%d", clerk.ID), owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing user: expected 404, got %d", rec.Code)
	}
	users := decodeBody[[]domain.UserAccount](t, doJSON(t, handler, http.MethodGet, "/api/users", owner, nil))
	if len(users) != 1 || users[0].ID != me.ID {
		t.Fatalf("expected only the owner to remain, got %+v", users)
	}
}
