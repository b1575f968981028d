// Package handler exposes account views: collateral balances and, when the
// in-memory event sink is active, the registry events involving an account.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/events"
	"kitties/pkg/platform/httputil"
	"kitties/pkg/requestcontext"
)

// BalanceReader reads ledger balances.
type BalanceReader interface {
	Balance(ctx context.Context, account id.AccountID) (models.Balance, error)
}

// EventLister lists stored events involving an account.
type EventLister interface {
	ListByAccount(ctx context.Context, account id.AccountID) ([]events.Event, error)
}

type Handler struct {
	balances BalanceReader
	events   EventLister
	logger   *slog.Logger
}

// New constructs the account handler. A nil lister leaves the events route
// unmounted.
func New(balances BalanceReader, lister EventLister, logger *slog.Logger) *Handler {
	return &Handler{
		balances: balances,
		events:   lister,
		logger:   logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/accounts/{account}/balance", h.HandleBalance)
	if h.events != nil {
		r.Get("/accounts/{account}/events", h.HandleEvents)
	}
}

type BalanceResponse struct {
	Account  id.AccountID `json:"account"`
	Free     uint64       `json:"free"`
	Reserved uint64       `json:"reserved"`
}

type EventsResponse struct {
	Account id.AccountID   `json:"account"`
	Events  []events.Event `json:"events"`
}

// HandleBalance handles GET /accounts/{account}/balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	b, err := h.balances.Balance(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read balance",
			"request_id", requestcontext.RequestID(ctx),
			"account", account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: account, Free: b.Free, Reserved: b.Reserved})
}

// HandleEvents handles GET /accounts/{account}/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.events.ListByAccount(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list events",
			"request_id", requestcontext.RequestID(ctx),
			"account", account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Account: account, Events: list})
}
