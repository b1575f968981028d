// Package service implements the kitty registry operations.
//
// Every operation validates, reserves collateral, then commits all registry
// writes inside one store transaction. A rejection after the reservation
// releases it inside the same transaction, so no partial state is ever
// visible. Events are emitted only after the commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kitties/internal/kitties/metrics"
	"kitties/internal/kitties/models"
	"kitties/internal/kitties/ports"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/sentinel"
)

// Type aliases for the consumed ports.
type (
	Registry         = ports.Registry
	Store            = ports.Store
	CollateralLedger = ports.CollateralLedger
	GenomeDeriver    = ports.GenomeDeriver
	EventPublisher   = ports.EventPublisher
)

// Defaults for the registry constants.
const (
	DefaultMaxInventory  = 64
	DefaultReserveAmount = uint64(1000)
	DefaultMaxKittyID    = models.KittyID(math.MaxUint32)
)

const (
	opMint     = "mint"
	opBreed    = "breed"
	opTransfer = "transfer"
)

// Settings are the registry constants a service was built with.
type Settings struct {
	MaxInventory  int            `json:"max_inventory"`
	ReserveAmount uint64         `json:"reserve_amount"`
	MaxKittyID    models.KittyID `json:"max_kitty_id"`
}

type Service struct {
	registry  Registry
	ledger    CollateralLedger
	deriver   GenomeDeriver
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	maxInventory  int
	reserveAmount uint64
	maxKittyID    models.KittyID
	ledgerJoinsTx bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithMaxInventory bounds how many kitties one account may own.
func WithMaxInventory(n int) Option {
	return func(s *Service) {
		s.maxInventory = n
	}
}

// WithReserveAmount sets the collateral held per owned kitty.
func WithReserveAmount(amount uint64) Option {
	return func(s *Service) {
		s.reserveAmount = amount
	}
}

// WithMaxKittyID sets the allocator ceiling. The ceiling itself is never issued.
func WithMaxKittyID(maxID models.KittyID) Option {
	return func(s *Service) {
		s.maxKittyID = maxID
	}
}

func New(registry Registry, ledger CollateralLedger, deriver GenomeDeriver, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("collateral ledger is required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("genome deriver is required")
	}

	svc := &Service{
		registry:      registry,
		ledger:        ledger,
		deriver:       deriver,
		logger:        slog.New(slog.DiscardHandler),
		metrics:       metrics.New(nil),
		tracer:        otel.Tracer("kitties/internal/kitties/service"),
		maxInventory:  DefaultMaxInventory,
		reserveAmount: DefaultReserveAmount,
		maxKittyID:    DefaultMaxKittyID,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.maxInventory <= 0 {
		return nil, fmt.Errorf("max inventory must be positive")
	}
	if j, ok := ledger.(interface{ JoinsTx() bool }); ok {
		svc.ledgerJoinsTx = j.JoinsTx()
	}
	return svc, nil
}

// Settings returns the registry constants.
func (s *Service) Settings() Settings {
	return Settings{
		MaxInventory:  s.maxInventory,
		ReserveAmount: s.reserveAmount,
		MaxKittyID:    s.maxKittyID,
	}
}

// Mint creates a kitty with a derived genome for caller.
func (s *Service) Mint(ctx context.Context, caller id.AccountID) (*models.Kitty, error) {
	ctx, span := s.tracer.Start(ctx, "kitties.Mint",
		trace.WithAttributes(attribute.String("kitties.caller", caller.String())))
	defer span.End()
	start := time.Now()

	var kitty models.Kitty
	err := s.runInTx(ctx, func(ctx context.Context, store Store, comp *compensations) error {
		next, err := s.allocate(ctx, store)
		if err != nil {
			return err
		}
		genome, err := s.deriver.Derive(ctx, caller, uint64(next))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive genome")
		}
		if err := s.reserve(ctx, caller, comp); err != nil {
			return err
		}
		kitty = models.Kitty{ID: next, Genome: genome}
		return s.insert(ctx, store, caller, kitty)
	})
	s.finish(ctx, span, opMint, start, err)
	if err != nil {
		s.logRejection(ctx, opMint, err, "caller", caller)
		return nil, err
	}

	s.metrics.SetKittiesIssued(uint32(kitty.ID) + 1)
	span.SetAttributes(attribute.Int64("kitties.kitty_id", int64(kitty.ID)))
	s.logAudit(ctx, "kitty_minted",
		"caller", caller,
		"kitty_id", kitty.ID,
		"genome", kitty.Genome,
	)
	s.emit(ctx, kittyCreatedEvent(ctx, caller, kitty, nil))
	return &kitty, nil
}

// Breed creates a child of two existing kitties for caller. Each child bit
// comes from parent1 where the derived selector has a 1 and from parent2
// where it has a 0. Parents need not be owned by caller.
func (s *Service) Breed(ctx context.Context, caller id.AccountID, parent1, parent2 models.KittyID) (*models.Kitty, error) {
	ctx, span := s.tracer.Start(ctx, "kitties.Breed", trace.WithAttributes(
		attribute.String("kitties.caller", caller.String()),
		attribute.Int64("kitties.parent_1", int64(parent1)),
		attribute.Int64("kitties.parent_2", int64(parent2)),
	))
	defer span.End()
	start := time.Now()

	var kitty models.Kitty
	err := s.runInTx(ctx, func(ctx context.Context, store Store, comp *compensations) error {
		if parent1 == parent2 {
			return dErrors.New(dErrors.CodeSameKittyID, "parents must be two different kitties")
		}
		p1, err := s.findKitty(ctx, store, parent1)
		if err != nil {
			return err
		}
		p2, err := s.findKitty(ctx, store, parent2)
		if err != nil {
			return err
		}
		next, err := s.allocate(ctx, store)
		if err != nil {
			return err
		}
		if err := s.reserve(ctx, caller, comp); err != nil {
			return err
		}
		selector, err := s.deriver.Derive(ctx, caller, uint64(next))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive genome")
		}
		kitty = models.Kitty{ID: next, Genome: crossover(p1.Genome, p2.Genome, selector)}
		return s.insert(ctx, store, caller, kitty)
	})
	s.finish(ctx, span, opBreed, start, err)
	if err != nil {
		s.logRejection(ctx, opBreed, err,
			"caller", caller,
			"parent_1", parent1,
			"parent_2", parent2,
		)
		return nil, err
	}

	s.metrics.SetKittiesIssued(uint32(kitty.ID) + 1)
	span.SetAttributes(attribute.Int64("kitties.kitty_id", int64(kitty.ID)))
	s.logAudit(ctx, "kitty_bred",
		"caller", caller,
		"kitty_id", kitty.ID,
		"parent_1", parent1,
		"parent_2", parent2,
		"genome", kitty.Genome,
	)
	s.emit(ctx, kittyCreatedEvent(ctx, caller, kitty, []models.KittyID{parent1, parent2}))
	return &kitty, nil
}

// Transfer moves kittyID from caller to newOwner, moving the collateral with
// it. Transferring to oneself succeeds and changes no balance.
func (s *Service) Transfer(ctx context.Context, caller id.AccountID, kittyID models.KittyID, newOwner id.AccountID) error {
	ctx, span := s.tracer.Start(ctx, "kitties.Transfer", trace.WithAttributes(
		attribute.String("kitties.caller", caller.String()),
		attribute.String("kitties.new_owner", newOwner.String()),
		attribute.Int64("kitties.kitty_id", int64(kittyID)),
	))
	defer span.End()
	start := time.Now()

	err := s.runInTx(ctx, func(ctx context.Context, store Store, comp *compensations) error {
		owner, err := s.findOwner(ctx, store, kittyID)
		if err != nil {
			return err
		}
		if owner != caller {
			return dErrors.New(dErrors.CodeNotOwner, "caller does not own this kitty")
		}
		if err := s.reserve(ctx, newOwner, comp); err != nil {
			return err
		}

		held, err := store.Inventory(ctx, newOwner)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read inventory")
		}
		size := len(held)
		if newOwner == caller {
			size--
		}
		if size >= s.maxInventory {
			return dErrors.New(dErrors.CodeExceedMaxInventory, "new owner's inventory is full")
		}

		if err := store.RemoveOwned(ctx, caller, kittyID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "owned kitty missing from owner's inventory")
		}
		if err := s.release(ctx, caller, comp); err != nil {
			return err
		}
		if err := store.SetOwner(ctx, kittyID, newOwner); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set owner")
		}
		if err := s.addOwned(ctx, store, newOwner, kittyID); err != nil {
			return err
		}
		return nil
	})
	s.finish(ctx, span, opTransfer, start, err)
	if err != nil {
		s.logRejection(ctx, opTransfer, err,
			"caller", caller,
			"kitty_id", kittyID,
			"new_owner", newOwner,
		)
		return err
	}

	s.logAudit(ctx, "kitty_transferred",
		"caller", caller,
		"kitty_id", kittyID,
		"new_owner", newOwner,
	)
	s.emit(ctx, kittyTransferredEvent(ctx, caller, newOwner, kittyID))
	return nil
}

// Kitty returns the kitty with kittyID.
func (s *Service) Kitty(ctx context.Context, kittyID models.KittyID) (*models.Kitty, error) {
	return s.findKitty(ctx, s.registry, kittyID)
}

// Owner returns the account owning kittyID.
func (s *Service) Owner(ctx context.Context, kittyID models.KittyID) (id.AccountID, error) {
	return s.findOwner(ctx, s.registry, kittyID)
}

// Inventory lists the kitties owner holds.
func (s *Service) Inventory(ctx context.Context, owner id.AccountID) ([]models.KittyID, error) {
	held, err := s.registry.Inventory(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read inventory")
	}
	return held, nil
}

// OwnedKitties returns the kitties owner holds, genomes included.
func (s *Service) OwnedKitties(ctx context.Context, owner id.AccountID) ([]models.Kitty, error) {
	held, err := s.Inventory(ctx, owner)
	if err != nil {
		return nil, err
	}
	kitties, err := s.registry.FindKitties(ctx, held)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load kitties")
	}
	return kitties, nil
}

// NextID returns the id the next created kitty will receive.
func (s *Service) NextID(ctx context.Context) (models.KittyID, error) {
	next, err := s.registry.NextID(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read next kitty id")
	}
	return next, nil
}

// runInTx runs fn in a registry transaction. Compensations recorded by fn
// are undone inside the transaction when fn fails. When the commit itself
// fails they are undone afterwards, unless the ledger rolled back with it.
func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context, store Store, comp *compensations) error) error {
	var comp compensations
	fnDone := false

	err := s.registry.RunInTx(ctx, func(ctx context.Context, store Store) error {
		comp = compensations{}
		if err := fn(ctx, store, &comp); err != nil {
			comp.undo(ctx, s.logger)
			return err
		}
		fnDone = true
		return nil
	})
	if err == nil {
		return nil
	}
	if fnDone && !s.ledgerJoinsTx {
		comp.undo(context.WithoutCancel(ctx), s.logger)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry transaction failed")
}

// allocate returns the next id, failing when the allocator is exhausted.
func (s *Service) allocate(ctx context.Context, store Store) (models.KittyID, error) {
	next, err := store.NextID(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read next kitty id")
	}
	if next >= s.maxKittyID {
		return 0, dErrors.New(dErrors.CodeKittyIDOverflow, "kitty id space exhausted")
	}
	return next, nil
}

// insert checks capacity and commits a new kitty owned by owner.
func (s *Service) insert(ctx context.Context, store Store, owner id.AccountID, kitty models.Kitty) error {
	held, err := store.Inventory(ctx, owner)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read inventory")
	}
	if len(held) >= s.maxInventory {
		return dErrors.New(dErrors.CodeExceedMaxInventory, "inventory is full")
	}

	if err := store.SaveKitty(ctx, kitty); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save kitty")
	}
	if err := store.SetOwner(ctx, kitty.ID, owner); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set owner")
	}
	if err := s.addOwned(ctx, store, owner, kitty.ID); err != nil {
		return err
	}
	if err := store.AdvanceID(ctx); err != nil {
		if errors.Is(err, sentinel.ErrLimitExceeded) {
			return dErrors.Wrap(err, dErrors.CodeKittyIDOverflow, "kitty id space exhausted")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance kitty id")
	}
	return nil
}

func (s *Service) addOwned(ctx context.Context, store Store, owner id.AccountID, kittyID models.KittyID) error {
	if err := store.AddOwned(ctx, owner, kittyID); err != nil {
		if errors.Is(err, sentinel.ErrLimitExceeded) {
			return dErrors.Wrap(err, dErrors.CodeExceedMaxInventory, "inventory is full")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update inventory")
	}
	return nil
}

func (s *Service) findKitty(ctx context.Context, r ports.Reader, kittyID models.KittyID) (*models.Kitty, error) {
	kitty, err := r.FindKitty(ctx, kittyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvalidKittyID, "kitty does not exist")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load kitty")
	}
	return kitty, nil
}

func (s *Service) findOwner(ctx context.Context, r ports.Reader, kittyID models.KittyID) (id.AccountID, error) {
	owner, err := r.FindOwner(ctx, kittyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return id.AccountID{}, dErrors.New(dErrors.CodeInvalidKittyID, "kitty does not exist")
	}
	if err != nil {
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
	}
	return owner, nil
}

// finish records metrics and span status for one operation.
func (s *Service) finish(_ context.Context, span trace.Span, operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.ObserveOperation(operation, outcome, time.Since(start).Seconds())
}
