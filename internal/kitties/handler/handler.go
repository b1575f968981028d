package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kitties/internal/kitties/models"
	"kitties/internal/kitties/service"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/httputil"
	"kitties/pkg/requestcontext"
)

const (
	opMint     = "mint"
	opBreed    = "breed"
	opTransfer = "transfer"
)

// Service defines the registry operations the handler exposes.
type Service interface {
	Mint(ctx context.Context, caller id.AccountID) (*models.Kitty, error)
	Breed(ctx context.Context, caller id.AccountID, parent1, parent2 models.KittyID) (*models.Kitty, error)
	Transfer(ctx context.Context, caller id.AccountID, kittyID models.KittyID, newOwner id.AccountID) error
	Kitty(ctx context.Context, kittyID models.KittyID) (*models.Kitty, error)
	Owner(ctx context.Context, kittyID models.KittyID) (id.AccountID, error)
	OwnedKitties(ctx context.Context, owner id.AccountID) ([]models.Kitty, error)
	NextID(ctx context.Context) (models.KittyID, error)
	Settings() service.Settings
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service     Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
	throttle    func(operation string) func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithThrottle installs a per-operation middleware that runs after
// authentication on each mutation.
func WithThrottle(throttle func(operation string) func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.throttle = throttle
	}
}

// New constructs a registry handler. requireAuth guards every mutation.
func New(service Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler, opts ...Option) *Handler {
	h := &Handler{
		service:     service,
		logger:      logger,
		requireAuth: requireAuth,
		throttle: func(string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry", h.HandleRegistry)
	r.Get("/kitties/{id}", h.HandleGetKitty)
	r.Get("/accounts/{account}/kitties", h.HandleInventory)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.With(h.throttle(opMint)).Post("/kitties", h.HandleMint)
		r.With(h.throttle(opBreed)).Post("/kitties/breed", h.HandleBreed)
		r.With(h.throttle(opTransfer)).Post("/kitties/{id}/transfer", h.HandleTransfer)
	})
}

// HandleMint handles POST /kitties.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	start := time.Now()

	kitty, err := h.service.Mint(ctx, caller)
	if err != nil {
		h.writeServiceError(ctx, w, opMint, err)
		return
	}

	h.logger.InfoContext(ctx, "kitty minted",
		"request_id", requestcontext.RequestID(ctx),
		"kitty_id", kitty.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toKittyResponse(kitty, caller))
}

// HandleBreed handles POST /kitties/breed.
func (h *Handler) HandleBreed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req BreedRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid breed request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	kitty, err := h.service.Breed(ctx, caller, *req.Parent1, *req.Parent2)
	if err != nil {
		h.writeServiceError(ctx, w, opBreed, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toKittyResponse(kitty, caller))
}

// HandleTransfer handles POST /kitties/{id}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	kittyID, err := models.ParseKittyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req TransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid transfer request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Transfer(ctx, caller, kittyID, req.NewOwner); err != nil {
		h.writeServiceError(ctx, w, opTransfer, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetKitty handles GET /kitties/{id}.
func (h *Handler) HandleGetKitty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kittyID, err := models.ParseKittyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	kitty, err := h.service.Kitty(ctx, kittyID)
	if err != nil {
		h.writeServiceError(ctx, w, "get_kitty", err)
		return
	}
	owner, err := h.service.Owner(ctx, kittyID)
	if err != nil {
		h.writeServiceError(ctx, w, "get_kitty", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toKittyResponse(kitty, owner))
}

// HandleInventory handles GET /accounts/{account}/kitties.
func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	held, err := h.service.OwnedKitties(ctx, owner)
	if err != nil {
		h.writeServiceError(ctx, w, "inventory", err)
		return
	}
	resp := InventoryResponse{Owner: owner, Kitties: make([]models.Kitty, 0, len(held))}
	resp.Kitties = append(resp.Kitties, held...)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRegistry handles GET /registry.
func (h *Handler) HandleRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	next, err := h.service.NextID(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "registry", err)
		return
	}
	settings := h.service.Settings()
	httputil.WriteJSON(w, http.StatusOK, RegistryResponse{
		NextID:        next,
		MaxInventory:  settings.MaxInventory,
		ReserveAmount: settings.ReserveAmount,
		MaxKittyID:    settings.MaxKittyID,
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	caller := requestcontext.AccountID(r.Context())
	if caller.IsNil() {
		h.logger.ErrorContext(r.Context(), "account missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountID{}, false
	}
	return caller, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeInvariantViolation {
		h.logger.ErrorContext(ctx, "registry request failed",
			"request_id", requestcontext.RequestID(ctx),
			"operation", operation,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
