package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
	"account-service/internal/service"
)

var validate = validator.New()

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// AccountRequest is the create/update body. Balance travels as a decimal
// string. On update, id and customer_id are accepted but ignored.
type AccountRequest struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Balance    string `json:"balance" validate:"required"`
	Status     string `json:"status" validate:"required"`
	Type       string `json:"type" validate:"required"`
}

type AccountResponse struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Balance    string `json:"balance"`
	Status     string `json:"status"`
	Type       string `json:"type"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:         account.ID,
		CustomerID: account.CustomerID,
		Balance:    account.Balance.String(),
		Status:     account.Status,
		Type:       account.Type.String(),
	}
}

func (h *AccountHandler) decodeAccountRequest(r *http.Request) (service.AccountInput, *errors.AppError) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.AccountInput{}, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}

	if err := validate.Struct(req); err != nil {
		return service.AccountInput{}, errors.NewAppError(errors.InvalidInput, "missing required fields").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		return service.AccountInput{}, errors.NewAppError(errors.InvalidInput, "invalid balance format").WithDetails(err.Error())
	}

	return service.AccountInput{
		ID:         req.ID,
		CustomerID: req.CustomerID,
		Balance:    balance,
		Status:     req.Status,
		Type:       req.Type,
	}, nil
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	input, appErr := h.decodeAccountRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.CreateAccount(input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, appErr := parseAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.GetAccountByID(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.GetAllAccounts()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, toAccountResponse(account))
	}

	writeJSON(w, http.StatusOK, responses)
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, appErr := parseAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	input, appErr := h.decodeAccountRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.UpdateAccount(id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, appErr := parseAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.accountService.DeleteAccount(id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func parseAccountID(r *http.Request) (int64, *errors.AppError) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["account_id"], 10, 64)
	if err != nil {
		return 0, errors.NewAppError(errors.InvalidInput, "invalid account id").WithDetails(err.Error())
	}
	return id, nil
}
