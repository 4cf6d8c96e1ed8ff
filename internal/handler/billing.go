package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/amortization"
	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/response"
)

// BillingService is what the HTTP layer needs from the service.
type BillingService interface {
	CreateLoan(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	ListLoans(ctx context.Context, q domain.LoanListQuery) (*domain.LoanListResponse, error)
	UpdateLoan(ctx context.Context, loanID uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error

	GenerateSchedule(ctx context.Context, loanID uuid.UUID, startDate *time.Time) (*domain.LoanScheduleResponse, error)
	GetSchedule(ctx context.Context, loanID uuid.UUID, status string) (*domain.LoanScheduleResponse, error)
	UpdatePeriod(ctx context.Context, loanID uuid.UUID, edit domain.PeriodEdit, editor string) (*domain.ScheduleEntry, error)
	BatchEdit(ctx context.Context, loanID uuid.UUID, req domain.BatchEditRequest, editor string) ([]*domain.ScheduleEntry, error)

	RecordPayment(ctx context.Context, loanID uuid.UUID, req *domain.RecordPaymentRequest, recordedBy string) (*domain.RecordPaymentResponse, error)
	GetPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
	GetPaymentStats(ctx context.Context, loanID uuid.UUID) (*domain.PaymentStats, error)

	CalculateEqualInstallment(ctx context.Context, req amortization.CalculationRequest) (*amortization.Result, error)
	CalculateEqualPrincipal(ctx context.Context, req amortization.CalculationRequest) (*amortization.Result, error)
	CompareRepaymentMethods(ctx context.Context, req amortization.CalculationRequest) (*amortization.Comparison, error)
	CalculatePrepayment(ctx context.Context, req amortization.PrepaymentRequest) (*amortization.PrepaymentResult, error)
}

type BillingHandler struct {
	service   BillingService
	validator *validator.Validate
	log       *zap.Logger
}

func NewBillingHandler(service BillingService, log *zap.Logger) *BillingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingHandler{
		service:   service,
		validator: NewValidator(),
		log:       log,
	}
}

// RegisterRoutes mounts the loan, schedule, payment and calculator endpoints on r.
func (h *BillingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}", h.UpdateLoan).Methods(http.MethodPut)
	r.HandleFunc("/loans/{id}", h.DeleteLoan).Methods(http.MethodDelete)

	r.HandleFunc("/loans/{id}/generate-schedule", h.GenerateSchedule).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/repayment-schedule", h.GetSchedule).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}/repayment-schedule", h.BatchEdit).Methods(http.MethodPut)
	r.HandleFunc("/loans/{id}/repayment-schedule/{period:[0-9]+}", h.UpdatePeriod).Methods(http.MethodPut)

	r.HandleFunc("/loans/{id}/payments", h.RecordPayment).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/payments", h.GetPayments).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}/payment-stats", h.GetPaymentStats).Methods(http.MethodGet)

	r.HandleFunc("/calculate/equal-installment", h.CalculateEqualInstallment).Methods(http.MethodPost)
	r.HandleFunc("/calculate/equal-principal", h.CalculateEqualPrincipal).Methods(http.MethodPost)
	r.HandleFunc("/calculate/compare", h.CompareRepaymentMethods).Methods(http.MethodPost)
	r.HandleFunc("/calculate/prepayment", h.CalculatePrepayment).Methods(http.MethodPost)
}

func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, ok := domain.ParseRepaymentMethod(req.RepaymentMethod); !ok {
		response.BadRequest(w, "Unsupported repayment method", customError.WrapInvalidParameters(req.RepaymentMethod))
		return
	}

	created, err := h.service.CreateLoan(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, created)
}

func (h *BillingHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.LoanListQuery{
		Page:            atoiOr(q.Get("page"), 1),
		PerPage:         atoiOr(q.Get("per_page"), 0),
		Status:          q.Get("status"),
		RepaymentStatus: q.Get("repayment_status"),
		ApplicantID:     q.Get("applicant_id"),
	}

	loans, err := h.service.ListLoans(r.Context(), query)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loans)
}

func (h *BillingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *BillingHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	var req domain.UpdateLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.RepaymentMethod != nil {
		if _, ok := domain.ParseRepaymentMethod(*req.RepaymentMethod); !ok {
			response.BadRequest(w, "Unsupported repayment method", customError.WrapInvalidParameters(*req.RepaymentMethod))
			return
		}
	}

	loan, err := h.service.UpdateLoan(r.Context(), loanID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *BillingHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Message(w, "Loan deleted")
}

type generateScheduleRequest struct {
	RepaymentStartDate *time.Time `json:"repayment_start_date"`
}

func (h *BillingHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	var req generateScheduleRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	schedule, err := h.service.GenerateSchedule(r.Context(), loanID, req.RepaymentStartDate)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, schedule)
}

func (h *BillingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID, r.URL.Query().Get("status"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, schedule)
}

func (h *BillingHandler) UpdatePeriod(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	period, err := strconv.Atoi(mux.Vars(r)["period"])
	if err != nil || period < 1 {
		response.BadRequest(w, "Invalid period number", err)
		return
	}

	var edit domain.PeriodEdit
	if !h.decodeOptional(w, r, &edit) {
		return
	}
	edit.PeriodNumber = period
	if err := h.validator.Struct(edit); err != nil {
		response.BadRequest(w, "Validation failed", customError.WrapValidation(err))
		return
	}

	entry, err := h.service.UpdatePeriod(r.Context(), loanID, edit, RecorderFromContext(r.Context()))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, entry)
}

func (h *BillingHandler) BatchEdit(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	var req domain.BatchEditRequest
	if !h.decode(w, r, &req) {
		return
	}

	entries, err := h.service.BatchEdit(r.Context(), loanID, req, RecorderFromContext(r.Context()))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, entries)
}

func (h *BillingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	var req domain.RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	recorded, err := h.service.RecordPayment(r.Context(), loanID, &req, RecorderFromContext(r.Context()))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, recorded)
}

func (h *BillingHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	payments, err := h.service.GetPayments(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, payments)
}

func (h *BillingHandler) GetPaymentStats(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	stats, err := h.service.GetPaymentStats(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, stats)
}

func (h *BillingHandler) CalculateEqualInstallment(w http.ResponseWriter, r *http.Request) {
	var req amortization.CalculationRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.CalculateEqualInstallment(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

func (h *BillingHandler) CalculateEqualPrincipal(w http.ResponseWriter, r *http.Request) {
	var req amortization.CalculationRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.CalculateEqualPrincipal(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

func (h *BillingHandler) CompareRepaymentMethods(w http.ResponseWriter, r *http.Request) {
	var req amortization.CalculationRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.CompareRepaymentMethods(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

func (h *BillingHandler) CalculatePrepayment(w http.ResponseWriter, r *http.Request) {
	var req amortization.PrepaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Method != "" {
		method, ok := domain.ParseRepaymentMethod(string(req.Method))
		if !ok {
			response.BadRequest(w, "Unsupported repayment method", customError.WrapInvalidParameters(string(req.Method)))
			return
		}
		req.Method = method
	}

	result, err := h.service.CalculatePrepayment(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

// decode reads a required JSON body into dst and validates it.
func (h *BillingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", customError.WrapValidation(err))
		return false
	}
	return true
}

// decodeOptional accepts an empty body. Validation is left to the caller.
func (h *BillingHandler) decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

func loanIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return uuid.Nil, false
	}
	return loanID, true
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
