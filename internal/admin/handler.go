// Package admin exposes operator endpoints that sit outside the registry
// itself, such as funding accounts with collateral.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/httputil"
	"kitties/pkg/requestcontext"
)

// Depositor credits free collateral.
type Depositor interface {
	Deposit(ctx context.Context, account id.AccountID, amount uint64) (models.Balance, error)
}

type Handler struct {
	ledger       Depositor
	logger       *slog.Logger
	requireAdmin func(http.Handler) http.Handler
}

func New(ledger Depositor, logger *slog.Logger, requireAdmin func(http.Handler) http.Handler) *Handler {
	return &Handler{
		ledger:       ledger,
		logger:       logger,
		requireAdmin: requireAdmin,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/admin/accounts/{account}/deposits", h.HandleDeposit)
	})
}

// HandleDeposit handles POST /admin/accounts/{account}/deposits.
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req DepositRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.ledger.Deposit(ctx, account, *req.Amount)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "deposit failed",
				"account", account,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DepositResponse{
		Account:  account,
		Free:     balance.Free,
		Reserved: balance.Reserved,
	})
}
