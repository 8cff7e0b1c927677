// Account HTTP handlers.
//
// This file exposes REST endpoints for marketplace accounts:
//   - GET   /accounts        (list)
//   - PATCH /accounts/{id}   (flip auto-reply / active flags)
//
// Credentials are provisioned from configuration at startup; the API only
// exposes the two runtime switches. Tokens never appear in responses (the
// model excludes them from JSON).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/services"
)

//
// DTOs
//

// ListAccountsResponse wraps the configured marketplace accounts.
type ListAccountsResponse struct {
	Accounts []domain.Account `json:"accounts"`
}

// UpdateAccountRequest is the JSON payload for PATCH /accounts/{id}. Both
// fields are optional; absent fields are left unchanged.
type UpdateAccountRequest struct {
	// AutoReplyEnabled, when set, flips whether high-rated feedback bypasses
	// human review. Takes effect from the next polling cycle.
	AutoReplyEnabled *bool `json:"auto_reply_enabled,omitempty" example:"true"`
	// Active, when set, includes or excludes the account from polling.
	Active *bool `json:"active,omitempty" example:"true"`
}

//
// Handlers
//

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List marketplace accounts
// @Description Returns all configured accounts, active or not, ordered by name. Tokens are never included.
// @Tags        Accounts
// @Produce     json
//
// @Success     200  {object} handlers.ListAccountsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	accounts, err := h.accountSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListAccountsResponse{Accounts: accounts})
}

// UpdateAccount godoc
// @ID          updateAccount
// @Summary     Update account flags
// @Description Flips the auto-reply and/or active flag of an account. Absent fields are left unchanged.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateAccountRequest  true  "Flags to change"
//
// @Success     200  {object} domain.Account
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Account not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /accounts/{id} [patch]
func (h *Handlers) UpdateAccount(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id must be a UUID")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.AutoReplyEnabled == nil && req.Active == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nothing to update")
		return
	}

	var (
		acc *domain.Account
		err error
	)
	if req.AutoReplyEnabled != nil {
		acc, err = h.accountSvc.SetAutoReply(ctx, id, *req.AutoReplyEnabled)
		if err != nil {
			failAccountErr(c, err)
			return
		}
	}
	if req.Active != nil {
		acc, err = h.accountSvc.SetActive(ctx, id, *req.Active)
		if err != nil {
			failAccountErr(c, err)
			return
		}
	}
	ok(c, http.StatusOK, acc)
}

// failAccountErr maps AccountService errors onto the error envelope.
func failAccountErr(c *gin.Context, err error) {
	switch err {
	case services.ErrAccountNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
