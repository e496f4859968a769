package service

import (
	"context"
	"fmt"

	"barbershop/internal/auth"
	"barbershop/internal/domain"
	"barbershop/internal/events"
	"barbershop/internal/metrics"
	"barbershop/internal/models"
	"barbershop/internal/validation"

	"github.com/rs/zerolog"
)

const msgInvalidStatus = "Invalid booking status"

// AdminService is the review surface over persisted bookings.
// Every call re-checks the admin flag on the session.
type AdminService struct {
	repo     domain.BookingRepository
	eventBus domain.EventPublisher
	sheets   domain.SyncWorker
	logger   zerolog.Logger
}

func NewAdminService(repo domain.BookingRepository, eventBus domain.EventPublisher, sheets domain.SyncWorker, logger *zerolog.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		eventBus: eventBus,
		sheets:   sheets,
		logger:   logger.With().Str("component", "admin").Logger(),
	}
}

func requireAdmin(sess *auth.Session) error {
	if sess == nil || !sess.IsAdmin {
		return ErrAccessDenied
	}
	return nil
}

// ListBookings returns every booking, newest first.
func (s *AdminService) ListBookings(ctx context.Context, sess *auth.Session) ([]*models.Booking, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	list, err := s.repo.ListBookings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list bookings")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return list, nil
}

// UpdateStatus changes only the status of one booking and returns a fresh list.
// Concurrent updates are last-write-wins.
func (s *AdminService) UpdateStatus(ctx context.Context, sess *auth.Session, id, status string) ([]*models.Booking, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	newStatus, err := models.ParseBookingStatus(status)
	if err != nil {
		return nil, &validation.ValidationError{Field: "status", Message: msgInvalidStatus}
	}

	log := s.logger.With().Str("booking_id", id).Str("admin_id", sess.UserID).Str("status", newStatus).Logger()

	prev, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		log.Warn().Err(err).Msg("booking lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if err := s.repo.UpdateBookingStatus(ctx, id, newStatus); err != nil {
		log.Error().Err(err).Msg("failed to update booking status")
		return nil, fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	metrics.IncStatusUpdate(newStatus)
	log.Info().Str("previous", prev.Status).Msg("booking status updated")

	updated := *prev
	updated.Status = newStatus
	s.afterUpdate(ctx, &log, &updated, prev.Status, sess.Email)

	return s.ListBookings(ctx, sess)
}

func (s *AdminService) afterUpdate(ctx context.Context, log *zerolog.Logger, b *models.Booking, previous, changedBy string) {
	if s.eventBus != nil {
		payload := events.PayloadFromBooking(b)
		payload.PreviousStatus = previous
		payload.ChangedBy = changedBy
		if err := s.eventBus.PublishJSON(events.EventBookingStatusChanged, payload); err != nil {
			log.Error().Err(err).Msg("publish event error")
		}
	}
	if s.sheets != nil {
		if err := s.sheets.EnqueueTask(ctx, "update_status", b.ID, b, b.Status); err != nil {
			log.Error().Err(err).Msg("sheets enqueue error")
		}
	}
}
