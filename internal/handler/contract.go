package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/borrowhood/rto-engine/internal/domain"
	"github.com/borrowhood/rto-engine/internal/service"
	"github.com/borrowhood/rto-engine/pkg/response"
)

// UserIDHeader carries the authenticated caller's id. Session issuance and
// verification happen upstream of this service.
const UserIDHeader = "X-User-ID"

type ContractHandler struct {
	contracts service.ContractService
	payments  service.PaymentService
	validator *validator.Validate
}

func NewContractHandler(contracts service.ContractService, payments service.PaymentService) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		payments:  payments,
		validator: validator.New(),
	}
}

// CreateContract handles POST /api/v1/contracts
func (h *ContractHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req domain.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	result, err := h.contracts.CreateContract(r.Context(), callerID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, result)
}

// ApproveContract handles POST /api/v1/contracts/{contractId}/approve
func (h *ContractHandler) ApproveContract(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	contractID, ok := pathContractID(w, r)
	if !ok {
		return
	}

	contract, err := h.contracts.ApproveContract(r.Context(), contractID, callerID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, contract)
}

// DeclineContract handles POST /api/v1/contracts/{contractId}/decline
func (h *ContractHandler) DeclineContract(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	contractID, ok := pathContractID(w, r)
	if !ok {
		return
	}

	var req domain.DeclineContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	contract, err := h.contracts.DeclineContract(r.Context(), contractID, callerID, req.Reason)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, contract)
}

// CancelContract handles POST /api/v1/contracts/{contractId}/cancel
func (h *ContractHandler) CancelContract(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	contractID, ok := pathContractID(w, r)
	if !ok {
		return
	}

	var req domain.CancelContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	contract, err := h.contracts.CancelContract(r.Context(), contractID, callerID, req.Reason)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, contract)
}

// MakePayment handles POST /api/v1/contracts/{contractId}/payment
func (h *ContractHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	contractID, ok := pathContractID(w, r)
	if !ok {
		return
	}

	result, err := h.payments.MakePayment(r.Context(), contractID, callerID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// GetContract handles GET /api/v1/contracts/{contractId}
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	contractID, ok := pathContractID(w, r)
	if !ok {
		return
	}

	view, err := h.contracts.GetContract(r.Context(), contractID, callerID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, view)
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		response.Unauthorized(w, "missing "+UserIDHeader+" header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Unauthorized(w, "invalid "+UserIDHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}

func pathContractID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["contractId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(w, "invalid contract id", err)
		return uuid.Nil, false
	}
	return id, true
}
