package service

import (
	"context"

	"kitties/internal/kitties/genome"
	"kitties/internal/kitties/models"
	id "kitties/pkg/domain"
	dErrors "kitties/pkg/domain-errors"
	"kitties/pkg/platform/events"
	"kitties/pkg/requestcontext"
)

var crossover = genome.Crossover

func kittyCreatedEvent(ctx context.Context, caller id.AccountID, kitty models.Kitty, parents []models.KittyID) events.Event {
	e := events.Event{
		Kind:      events.KindKittyCreated,
		Account:   caller,
		KittyID:   uint32(kitty.ID),
		Genome:    kitty.Genome.String(),
		Timestamp: requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	for _, p := range parents {
		e.Parents = append(e.Parents, uint32(p))
	}
	return e
}

func kittyTransferredEvent(ctx context.Context, caller, newOwner id.AccountID, kittyID models.KittyID) events.Event {
	return events.Event{
		Kind:         events.KindKittyTransferred,
		Account:      caller,
		Counterparty: newOwner,
		KittyID:      uint32(kittyID),
		Timestamp:    requestcontext.Now(ctx),
		RequestID:    requestcontext.RequestID(ctx),
	}
}

// emit publishes e. Failures are logged and counted only.
func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(context.WithoutCancel(ctx), e); err != nil {
		s.metrics.IncEmitFailures()
		s.logger.WarnContext(ctx, "failed to emit registry event",
			"kind", e.Kind,
			"kitty_id", e.KittyID,
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, attrs ...any) {
	args := append([]any{
		"action", action,
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
	}, attrs...)
	s.logger.InfoContext(ctx, "registry operation", args...)
}

func (s *Service) logRejection(ctx context.Context, operation string, err error, attrs ...any) {
	args := append([]any{
		"operation", operation,
		"code", dErrors.CodeOf(err),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	}, attrs...)
	s.logger.WarnContext(ctx, "registry operation rejected", args...)
}
