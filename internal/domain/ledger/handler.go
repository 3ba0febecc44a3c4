package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell-api/internal/middleware"
	"github.com/inkwell/inkwell-api/internal/pkg/provider"
	"github.com/inkwell/inkwell-api/internal/pkg/response"
	"github.com/inkwell/inkwell-api/internal/pkg/validator"
)

// Handler handles payment HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates payment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// InitiateRequest is the payment initiation payload
type InitiateRequest struct {
	Amount   float64                `json:"amount" validate:"required,gt=0"`
	Currency string                 `json:"currency" validate:"required,currency"`
	Type     string                 `json:"type" validate:"txtype"`
	Region   string                 `json:"region"`
	IsCrypto bool                   `json:"is_crypto"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Initiate starts a payment
// POST /api/v1/payments/initiate
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Struct(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Initiate(r.Context(), InitiateParams{
		UserID:   middleware.GetUserID(r.Context()),
		Email:    middleware.GetEmail(r.Context()),
		Amount:   req.Amount,
		Currency: req.Currency,
		Type:     Type(req.Type),
		Region:   req.Region,
		IsCrypto: req.IsCrypto,
		Metadata: req.Metadata,
	})
	if err != nil {
		var initErr *provider.InitError
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrWalletCreation):
			response.Error(w, http.StatusInternalServerError, "WALLET_CREATION_FAILED", "Could not prepare a wallet for this payment")
		case errors.As(err, &initErr):
			response.Error(w, http.StatusBadGateway, "PROVIDER_INIT_FAILED", "Payment provider could not start this payment")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// Verify polls the current state of a payment
// GET /api/v1/payments/verify/{reference}
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		response.BadRequest(w, "Missing reference")
		return
	}

	tx, err := h.service.Verify(r.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			response.NotFound(w, "Transaction not found")
		case errors.Is(err, provider.ErrUnknownProvider):
			response.Error(w, http.StatusConflict, "UNKNOWN_PROVIDER", "Transaction references an unknown provider")
		default:
			response.InternalError(w)
		}
		return
	}

	if tx.UserID != middleware.GetUserID(r.Context()) {
		response.NotFound(w, "Transaction not found")
		return
	}

	response.OK(w, tx)
}

// History lists the user's payments
// GET /api/v1/payments
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.service.History(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, txs)
}
