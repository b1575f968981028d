package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kitties/internal/kitties/metrics"
	"kitties/internal/kitties/models"
	"kitties/internal/kitties/service/mocks"
	"kitties/internal/kitties/store/memory"
	ledgermodels "kitties/internal/ledger/models"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/events"
)

// =============================================================================
// Collaborator Interaction Suite
// =============================================================================
// Verifies the ledger calls each operation makes, including the releases that
// undo a reservation when a later step rejects the operation.

type CollaboratorSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	ledger    *mocks.MockCollateralLedger
	deriver   *mocks.MockGenomeDeriver
	publisher *mocks.MockEventPublisher
	store     *memory.InMemoryStore
	metrics   *metrics.Metrics
	service   *Service
	caller    id.AccountID
}

func TestCollaboratorSuite(t *testing.T) {
	suite.Run(t, new(CollaboratorSuite))
}

func (s *CollaboratorSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockCollateralLedger(s.ctrl)
	s.deriver = mocks.NewMockGenomeDeriver(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.store = memory.New(1)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.caller = id.NewAccountID()

	var err error
	s.service, err = New(s.store, s.ledger, s.deriver,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEventPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithMaxInventory(1),
		WithReserveAmount(5),
	)
	s.Require().NoError(err)
}

func (s *CollaboratorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CollaboratorSuite) TestMintSuccess() {
	g := models.Genome{0xAA}
	gomock.InOrder(
		s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(g, nil),
		s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil),
		s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e events.Event) error {
				s.Equal(events.KindKittyCreated, e.Kind)
				s.Equal(g.String(), e.Genome)
				return nil
			}),
	)

	kitty, err := s.service.Mint(s.ctx, s.caller)

	s.Require().NoError(err)
	s.Equal(g, kitty.Genome)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Operations.WithLabelValues(opMint, "success")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.KittiesIssued))
}

func (s *CollaboratorSuite) TestMintCapacityReleasesReservation() {
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, gomock.Any()).Return(models.Genome{}, nil).Times(2)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil).Times(2)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.ledger.EXPECT().Release(gomock.Any(), s.caller, uint64(5)).Return(nil)

	_, err := s.service.Mint(s.ctx, s.caller)
	s.Require().NoError(err)

	_, err = s.service.Mint(s.ctx, s.caller)
	s.True(dErrors.Is(err, dErrors.CodeExceedMaxInventory))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Operations.WithLabelValues(opMint, string(dErrors.CodeExceedMaxInventory))))
}

func (s *CollaboratorSuite) TestMintInsufficientFunds() {
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(ledgermodels.ErrInsufficientFunds)

	_, err := s.service.Mint(s.ctx, s.caller)

	s.True(dErrors.Is(err, dErrors.CodeTokenNotEnough))
	s.ErrorIs(err, ledgermodels.ErrInsufficientFunds)
}

func (s *CollaboratorSuite) TestMintLedgerFailureIsInternal() {
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(errors.New("connection reset"))

	_, err := s.service.Mint(s.ctx, s.caller)

	s.True(dErrors.Is(err, dErrors.CodeInternal))
}

func (s *CollaboratorSuite) TestMintDeriveFailureReservesNothing() {
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{}, errors.New("entropy exhausted"))

	_, err := s.service.Mint(s.ctx, s.caller)

	s.True(dErrors.Is(err, dErrors.CodeInternal))
	next, err := s.service.NextID(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.KittyID(0), next)
}

func (s *CollaboratorSuite) TestEmitFailureDoesNotFailOperation() {
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("sink down"))

	kitty, err := s.service.Mint(s.ctx, s.caller)

	s.Require().NoError(err)
	s.Equal(models.KittyID(0), kitty.ID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EmitFailures))
}

func (s *CollaboratorSuite) TestBreedDeriveFailureReleasesReservation() {
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{1}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.Mint(s.ctx, s.caller)
	s.Require().NoError(err)

	other := id.NewAccountID()
	s.deriver.EXPECT().Derive(gomock.Any(), other, uint64(1)).Return(models.Genome{2}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), other, uint64(5)).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	_, err = s.service.Mint(s.ctx, other)
	s.Require().NoError(err)

	gomock.InOrder(
		s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil),
		s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(2)).Return(models.Genome{}, errors.New("entropy exhausted")),
		s.ledger.EXPECT().Release(gomock.Any(), s.caller, uint64(5)).Return(nil),
	)

	_, err = s.service.Breed(s.ctx, s.caller, 0, 1)
	s.True(dErrors.Is(err, dErrors.CodeInternal))
}

func (s *CollaboratorSuite) TestTransferMovesCollateral() {
	newOwner := id.NewAccountID()
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.Mint(s.ctx, s.caller)
	s.Require().NoError(err)

	gomock.InOrder(
		s.ledger.EXPECT().Reserve(gomock.Any(), newOwner, uint64(5)).Return(nil),
		s.ledger.EXPECT().Release(gomock.Any(), s.caller, uint64(5)).Return(nil),
		s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e events.Event) error {
				s.Equal(events.KindKittyTransferred, e.Kind)
				s.Equal(newOwner, e.Counterparty)
				return nil
			}),
	)

	s.Require().NoError(s.service.Transfer(s.ctx, s.caller, 0, newOwner))
}

func (s *CollaboratorSuite) TestTransferReleaseFailureRollsBack() {
	newOwner := id.NewAccountID()
	s.deriver.EXPECT().Derive(gomock.Any(), s.caller, uint64(0)).Return(models.Genome{}, nil)
	s.ledger.EXPECT().Reserve(gomock.Any(), s.caller, uint64(5)).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.Mint(s.ctx, s.caller)
	s.Require().NoError(err)

	gomock.InOrder(
		s.ledger.EXPECT().Reserve(gomock.Any(), newOwner, uint64(5)).Return(nil),
		s.ledger.EXPECT().Release(gomock.Any(), s.caller, uint64(5)).Return(errors.New("nothing reserved")),
		s.ledger.EXPECT().Release(gomock.Any(), newOwner, uint64(5)).Return(nil),
	)

	err = s.service.Transfer(s.ctx, s.caller, 0, newOwner)

	s.True(dErrors.Is(err, dErrors.CodeInvariantViolation))
	owner, err := s.service.Owner(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(s.caller, owner)
	held, err := s.service.Inventory(s.ctx, s.caller)
	s.Require().NoError(err)
	s.Equal([]models.KittyID{0}, held)
}
