package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fairshare/internal/middleware"
	"fairshare/internal/models"
	"fairshare/internal/service"
	"fairshare/internal/storage"
)

// BillHandler serves the bill endpoints.
type BillHandler struct {
	bills *service.BillService
}

// NewBillHandler creates a BillHandler.
func NewBillHandler(bills *service.BillService) *BillHandler {
	return &BillHandler{bills: bills}
}

type createBillBody struct {
	BillName       string                 `json:"billName"`
	TotalAmount    float64                `json:"totalAmount"`
	Currency       string                 `json:"currency"`
	SplitMethod    models.SplitMethod     `json:"splitMethod"`
	Participants   []models.Participant   `json:"participants"`
	Items          []models.BillItem      `json:"items"`
	CustomSplits   []models.CustomSplit   `json:"customSplits"`
	Notes          string                 `json:"notes"`
	AccountDetails *models.AccountDetails `json:"accountDetails"`
	CreatedByName  string                 `json:"createdByName"`
	CreatedByEmail string                 `json:"createdByEmail"`
}

// Create handles POST /api/bills. Works for guests and account holders;
// a valid token overrides the creator identity in the body.
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createBillBody
	if !decodeBody(w, r, &body) {
		return
	}

	req := service.CreateBillRequest{
		Name:           body.BillName,
		TotalAmount:    body.TotalAmount,
		Currency:       body.Currency,
		SplitMethod:    body.SplitMethod,
		Participants:   body.Participants,
		Items:          body.Items,
		CustomSplits:   body.CustomSplits,
		Notes:          body.Notes,
		AccountDetails: body.AccountDetails,
		CreatedByName:  body.CreatedByName,
		CreatedByEmail: body.CreatedByEmail,
	}

	ctx := r.Context()
	if userID := middleware.GetUserID(ctx); userID != "" {
		req.CreatedByID = userID
		req.CreatedByName = middleware.GetFullName(ctx)
		req.CreatedByEmail = middleware.GetEmail(ctx)
	}

	bill, err := h.bills.CreateBill(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, bill)
}

// Get handles GET /api/bills/{billID}. Bills are publicly readable by
// their shareable ID.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.bills.GetBill(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, bill)
}

type billListPage struct {
	Bills []models.Bill `json:"bills"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// List handles GET /api/bills for the authenticated user, with page,
// limit, and settled query parameters.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{Page: 1, Limit: 20}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 100 {
		opts.Limit = limit
	}
	if raw := r.URL.Query().Get("settled"); raw != "" {
		settled := raw == "true"
		opts.Settled = &settled
	}

	userID := middleware.GetUserID(r.Context())
	bills, total, err := h.bills.ListBills(r.Context(), userID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if bills == nil {
		bills = []models.Bill{}
	}
	writeData(w, http.StatusOK, billListPage{
		Bills: bills,
		Total: total,
		Page:  opts.Page,
		Limit: opts.Limit,
	})
}

// Stats handles GET /api/bills/stats for the authenticated user.
func (h *BillHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bills.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

type updateBillBody struct {
	BillName       *string                `json:"billName"`
	TotalAmount    *float64               `json:"totalAmount"`
	SplitMethod    *models.SplitMethod    `json:"splitMethod"`
	Participants   []models.Participant   `json:"participants"`
	Items          []models.BillItem      `json:"items"`
	CustomSplits   []models.CustomSplit   `json:"customSplits"`
	Notes          *string                `json:"notes"`
	AccountDetails *models.AccountDetails `json:"accountDetails"`
}

// Update handles PUT /api/bills/{billID}. Absent fields keep their
// stored values.
func (h *BillHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateBillBody
	if !decodeBody(w, r, &body) {
		return
	}

	patch := service.BillPatch{
		Name:           body.BillName,
		TotalAmount:    body.TotalAmount,
		SplitMethod:    body.SplitMethod,
		Participants:   body.Participants,
		Items:          body.Items,
		CustomSplits:   body.CustomSplits,
		Notes:          body.Notes,
		AccountDetails: body.AccountDetails,
	}

	bill, err := h.bills.UpdateBill(r.Context(), chi.URLParam(r, "billID"), patch, middleware.GetFullName(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, bill)
}

type markPaymentBody struct {
	ParticipantEmail string `json:"participantEmail"`
	IsPaid           bool   `json:"isPaid"`
}

// MarkPayment handles POST /api/bills/{billID}/payments. Anyone with the
// shareable link can flip a participant's paid flag.
func (h *BillHandler) MarkPayment(w http.ResponseWriter, r *http.Request) {
	var body markPaymentBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ParticipantEmail == "" {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "participantEmail is required"})
		return
	}

	bill, err := h.bills.MarkPayment(r.Context(), chi.URLParam(r, "billID"), body.ParticipantEmail, body.IsPaid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, bill)
}

// Delete handles DELETE /api/bills/{billID}. Bills with a registered
// creator can only be deleted by that user.
func (h *BillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.bills.DeleteBill(r.Context(), chi.URLParam(r, "billID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "bill deleted")
}
