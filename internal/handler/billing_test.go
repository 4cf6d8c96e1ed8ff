package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/repayment-engine/internal/amortization"
	"github.com/segyhp/repayment-engine/internal/domain"
	"github.com/segyhp/repayment-engine/internal/mocks"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(svc *mocks.MockBillingService, auth *Authenticator) http.Handler {
	return NewRouter(RouterConfig{
		Billing: NewBillingHandler(svc, nil),
		Auth:    auth,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestCreateLoan_Handler(t *testing.T) {
	svc := &mocks.MockBillingService{}
	router := newTestRouter(svc, nil)
	loanID := uuid.New()

	svc.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(120000)) && req.Term == 12
	})).Return(&domain.CreateLoanResponse{Loan: &domain.Loan{ID: loanID}}, nil)

	rec, env := do(t, router, http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"loan_name":        "Home renovation",
		"applicant_id":     "user-1",
		"applicant_name":   "Test Applicant",
		"bank":             "Test Bank",
		"amount":           "120000",
		"interest_rate":    "5",
		"term":             12,
		"repayment_method": "equal_installment",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), loanID.String())
	svc.AssertExpectations(t)
}

func TestCreateLoan_ValidationFailures(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"loan_name":        "Home renovation",
			"applicant_id":     "user-1",
			"applicant_name":   "Test Applicant",
			"bank":             "Test Bank",
			"amount":           "120000",
			"interest_rate":    "5",
			"term":             12,
			"repayment_method": "equal_principal",
		}
	}

	tests := []struct {
		name   string
		mutate func(m map[string]interface{})
	}{
		{"zero amount", func(m map[string]interface{}) { m["amount"] = "0" }},
		{"negative rate", func(m map[string]interface{}) { m["interest_rate"] = "-1" }},
		{"rate above 100", func(m map[string]interface{}) { m["interest_rate"] = "100.5" }},
		{"term above 360", func(m map[string]interface{}) { m["term"] = 361 }},
		{"missing name", func(m map[string]interface{}) { delete(m, "loan_name") }},
		{"unknown method", func(m map[string]interface{}) { m["repayment_method"] = "balloon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.MockBillingService{}
			body := valid()
			tt.mutate(body)

			rec, env := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/loans", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			svc.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
		})
	}
}

func TestGetLoan_Handler(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		rec, _ := do(t, newTestRouter(&mocks.MockBillingService{}, nil), http.MethodGet, "/api/v1/loans/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		svc.On("GetLoan", mock.Anything, id).Return(nil, customError.WrapLoanNotFound(id.String()))

		rec, env := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/v1/loans/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, customError.ErrCodeLoanNotFound, env.Code)
	})
}

func TestDeleteLoan_WithPayments(t *testing.T) {
	svc := &mocks.MockBillingService{}
	id := uuid.New()
	svc.On("DeleteLoan", mock.Anything, id).Return(customError.WrapLoanHasPayments(id.String(), 3))

	rec, env := do(t, newTestRouter(svc, nil), http.MethodDelete, "/api/v1/loans/"+id.String(), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, customError.ErrCodeLoanHasPayments, env.Code)
}

func TestListLoans_QueryParams(t *testing.T) {
	svc := &mocks.MockBillingService{}
	svc.On("ListLoans", mock.Anything, domain.LoanListQuery{Page: 2, PerPage: 5, Status: "active"}).
		Return(&domain.LoanListResponse{Items: []*domain.Loan{}, Pagination: domain.NewPagination(2, 5, 7)}, nil)

	rec, env := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/v1/loans?page=2&per_page=5&status=active", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total_pages":2`)
}

func TestGenerateSchedule_Handler(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		svc.On("GenerateSchedule", mock.Anything, id, (*time.Time)(nil)).Return(&domain.LoanScheduleResponse{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+id.String()+"/generate-schedule", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc, nil).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("paid periods", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		svc.On("GenerateSchedule", mock.Anything, id, mock.MatchedBy(func(d *time.Time) bool {
			return d != nil && d.Equal(start)
		})).Return(nil, customError.WrapScheduleExistsWithPayments(id.String()))

		rec, env := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/loans/"+id.String()+"/generate-schedule",
			map[string]interface{}{"repayment_start_date": start})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, customError.ErrCodeScheduleExistsWithPayments, env.Code)
	})
}

func TestGetSchedule_StatusFilter(t *testing.T) {
	svc := &mocks.MockBillingService{}
	id := uuid.New()
	svc.On("GetSchedule", mock.Anything, id, "overdue").Return(&domain.LoanScheduleResponse{}, nil)

	rec, _ := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/v1/loans/"+id.String()+"/repayment-schedule?status=overdue", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestUpdatePeriod_Handler(t *testing.T) {
	svc := &mocks.MockBillingService{}
	id := uuid.New()
	svc.On("UpdatePeriod", mock.Anything, id, mock.MatchedBy(func(e domain.PeriodEdit) bool {
		return e.PeriodNumber == 4 && e.Notes != nil && *e.Notes == "moved"
	}), SystemRecorder).Return(&domain.ScheduleEntry{PeriodNumber: 4}, nil)

	rec, _ := do(t, newTestRouter(svc, nil), http.MethodPut, "/api/v1/loans/"+id.String()+"/repayment-schedule/4",
		map[string]interface{}{"notes": "moved"})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestBatchEdit_Handler(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPut, "/api/v1/loans/"+uuid.NewString()+"/repayment-schedule",
			map[string]interface{}{"schedules": []interface{}{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative amount", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPut, "/api/v1/loans/"+uuid.NewString()+"/repayment-schedule",
			map[string]interface{}{"schedules": []interface{}{
				map[string]interface{}{"period_number": 1, "total_amount": "-5"},
			}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inconsistent period", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		svc.On("BatchEdit", mock.Anything, id, mock.Anything, SystemRecorder).
			Return(nil, customError.WrapConsistencyViolation(2, "principal plus interest must equal the total amount"))

		rec, env := do(t, newTestRouter(svc, nil), http.MethodPut, "/api/v1/loans/"+id.String()+"/repayment-schedule",
			map[string]interface{}{"schedules": []interface{}{
				map[string]interface{}{"period_number": 2, "total_amount": "11000"},
			}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, customError.ErrCodeConsistencyViolation, env.Code)
	})
}

func TestRecordPayment_Handler(t *testing.T) {
	t.Run("partial payment", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		svc.On("RecordPayment", mock.Anything, id, mock.MatchedBy(func(req *domain.RecordPaymentRequest) bool {
			return req.PeriodNumber == 1 && req.Amount != nil && req.Amount.Equal(decimal.RequireFromString("5136.45"))
		}), SystemRecorder).Return(&domain.RecordPaymentResponse{}, nil)

		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/loans/"+id.String()+"/payments",
			map[string]interface{}{"period_number": 1, "amount": "5136.45", "payment_method": "cash"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/loans/"+uuid.NewString()+"/payments",
			map[string]interface{}{"period_number": 1, "payment_method": "barter"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already settled", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		svc.On("RecordPayment", mock.Anything, id, mock.Anything, SystemRecorder).Return(nil, customError.WrapAlreadySettled(1))

		rec, env := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/loans/"+id.String()+"/payments",
			map[string]interface{}{"period_number": 1})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, customError.ErrCodeAlreadySettled, env.Code)
	})

	t.Run("lock busy", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		id := uuid.New()
		svc.On("RecordPayment", mock.Anything, id, mock.Anything, SystemRecorder).
			Return(nil, customError.WrapLockNotAcquired(id.String(), nil))

		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/loans/"+id.String()+"/payments",
			map[string]interface{}{"period_number": 1})

		assert.Equal(t, http.StatusLocked, rec.Code)
	})
}

func TestCalculator_Handlers(t *testing.T) {
	body := map[string]interface{}{"principal": "120000", "annual_rate": "5", "months": 12}

	t.Run("equal installment", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		svc.On("CalculateEqualInstallment", mock.Anything, mock.MatchedBy(func(req amortization.CalculationRequest) bool {
			return req.Months == 12 && req.Principal.Equal(decimal.NewFromInt(120000))
		})).Return(&amortization.Result{MonthlyPayment: decimal.RequireFromString("10272.90")}, nil)

		rec, env := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/calculate/equal-installment", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(env.Data), `"monthly_payment":"10272.9"`)
	})

	t.Run("compare", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		svc.On("CompareRepaymentMethods", mock.Anything, mock.Anything).
			Return(&amortization.Comparison{Recommendation: amortization.RecommendEqualPrincipal}, nil)

		rec, env := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/calculate/compare", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(env.Data), `"recommendation":"equal_principal"`)
	})

	t.Run("months out of range", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/calculate/equal-principal",
			map[string]interface{}{"principal": "1000", "annual_rate": "5", "months": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("prepayment method alias", func(t *testing.T) {
		svc := &mocks.MockBillingService{}
		svc.On("CalculatePrepayment", mock.Anything, mock.MatchedBy(func(req amortization.PrepaymentRequest) bool {
			return req.Method == domain.MethodEqualPrincipal && req.PaidMonths == 6
		})).Return(&amortization.PrepaymentResult{Outcome: amortization.PrepaymentPartial}, nil)

		rec, _ := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/v1/calculate/prepayment", map[string]interface{}{
			"principal": "120000", "annual_rate": "5", "original_months": 12,
			"paid_months": 6, "prepayment_amount": "20000", "method": "equalPrincipal",
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}
