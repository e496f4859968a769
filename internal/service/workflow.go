package service

import (
	"context"
	"errors"
	"fmt"

	"barbershop/internal/auth"
	"barbershop/internal/domain"
	"barbershop/internal/events"
	"barbershop/internal/metrics"
	"barbershop/internal/models"
	"barbershop/internal/validation"

	"github.com/rs/zerolog"
)

// State is a step of the booking submission workflow.
type State string

const (
	StateIdle                  State = "Idle"
	StateValidating            State = "Validating"
	StatePersisting            State = "Persisting"
	StateAwaitingPayment       State = "AwaitingPayment"
	StatePaymentSessionCreated State = "PaymentSessionCreated"
	StateNotifying             State = "Notifying"
	StateRedirecting           State = "Redirecting"
)

var allowedTransitions = map[State][]State{
	StateIdle:                  {StateValidating},
	StateValidating:            {StatePersisting, StateIdle},
	StatePersisting:            {StateAwaitingPayment, StateIdle},
	StateAwaitingPayment:       {StatePaymentSessionCreated, StateIdle},
	StatePaymentSessionCreated: {StateNotifying},
	StateNotifying:             {StateRedirecting},
	StateRedirecting:           {},
}

// CanTransition reports whether the workflow may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type machine struct {
	state State
	trail []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, trail: []State{StateIdle}}
}

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("illegal workflow transition %s -> %s", m.state, next)
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}

const (
	EffectPaymentReference  = "payment_reference"
	EffectConfirmationEmail = "confirmation_email"
	EffectStaffEvent        = "staff_event"
	EffectSheetsSync        = "sheets_sync"
)

// EffectOutcome records a side effect that never changes the submission result.
type EffectOutcome struct {
	Name     string `json:"name"`
	Blocking bool   `json:"blocking"`
	OK       bool   `json:"ok"`
	Err      error  `json:"-"`
}

// SubmitResult is returned for every submission. On failure State is Idle
// and Booking is set only if the record was already persisted.
type SubmitResult struct {
	Booking     *models.Booking
	CheckoutURL string
	SessionID   string
	State       State
	Trail       []State
	Effects     []EffectOutcome
}

type BookingWorkflow struct {
	repo     domain.BookingRepository
	payments domain.PaymentGateway
	mailer   domain.ConfirmationSender
	eventBus domain.EventPublisher
	sheets   domain.SyncWorker
	limiter  domain.SubmissionLimiter
	logger   zerolog.Logger
}

func NewBookingWorkflow(
	repo domain.BookingRepository,
	payments domain.PaymentGateway,
	mailer domain.ConfirmationSender,
	eventBus domain.EventPublisher,
	sheets domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingWorkflow {
	return &BookingWorkflow{
		repo:     repo,
		payments: payments,
		mailer:   mailer,
		eventBus: eventBus,
		sheets:   sheets,
		logger:   logger.With().Str("component", "booking_workflow").Logger(),
	}
}

// WithSubmissionLimiter caps accepted submissions per user. Only requests
// that passed validation and the sign-in check count against the cap.
func (w *BookingWorkflow) WithSubmissionLimiter(l domain.SubmissionLimiter) *BookingWorkflow {
	w.limiter = l
	return w
}

// Submit runs one submission from Idle to Redirecting. Steps run strictly in
// order and nothing is retried.
func (w *BookingWorkflow) Submit(ctx context.Context, sess *auth.Session, form validation.BookingForm) (*SubmitResult, error) {
	m := newMachine()
	res := &SubmitResult{}

	fail := func(outcome string, err error) (*SubmitResult, error) {
		if terr := m.to(StateIdle); terr != nil {
			w.logger.Error().Err(terr).Msg("workflow reset failed")
		}
		res.State = m.state
		res.Trail = m.trail
		metrics.IncSubmission(outcome)
		return res, err
	}

	if err := m.to(StateValidating); err != nil {
		return fail("internal", err)
	}
	req, err := validation.ValidateBooking(form)
	if err != nil {
		return fail("invalid", err)
	}
	amount := validation.ExtractPrice(req.Service)

	if sess == nil || sess.UserID == "" {
		return fail("unauthenticated", ErrAuthRequired)
	}
	log := w.logger.With().Str("user_id", sess.UserID).Logger()

	if w.limiter != nil {
		if err := w.limiter.CheckRateLimit(ctx, sess.UserID); err != nil {
			log.Warn().Err(err).Msg("submission rejected by rate limit")
			return fail("rate_limited", err)
		}
	}

	if err := m.to(StatePersisting); err != nil {
		return fail("internal", err)
	}
	paymentStatus := models.PaymentStatusPending
	booking := &models.Booking{
		UserID:        sess.UserID,
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Service:       req.Service,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Notes:         req.Notes,
		Status:        models.StatusPending,
		PaymentStatus: &paymentStatus,
		PaymentAmount: &amount,
	}
	if err := w.repo.CreateBooking(ctx, booking); err != nil {
		log.Error().Err(err).Msg("failed to persist booking")
		return fail("persistence_failed", fmt.Errorf("%w: %w", ErrPersistence, err))
	}
	res.Booking = booking
	log = log.With().Str("booking_id", booking.ID).Logger()

	if err := m.to(StateAwaitingPayment); err != nil {
		return fail("internal", err)
	}
	checkout, err := w.payments.CreateCheckoutSession(ctx, &models.CheckoutRequest{
		BookingID:     booking.ID,
		Amount:        amount,
		CustomerEmail: req.Email,
		CustomerName:  req.Name,
		Service:       req.Service,
	}, sess.BearerToken)
	if err == nil && (checkout == nil || checkout.URL == "") {
		err = errors.New("checkout session has no url")
	}
	if err != nil {
		log.Error().Err(err).Str("gateway", w.payments.Name()).Msg("payment session failed, booking left pending")
		return fail("payment_failed", fmt.Errorf("%w: %w", ErrPaymentSession, err))
	}
	if err := m.to(StatePaymentSessionCreated); err != nil {
		return fail("internal", err)
	}

	res.Effects = append(res.Effects, w.recordPaymentReference(ctx, &log, booking, checkout.SessionID))

	if err := m.to(StateNotifying); err != nil {
		return fail("internal", err)
	}
	res.Effects = append(res.Effects, w.sendConfirmation(ctx, &log, req, sess.BearerToken))
	res.Effects = append(res.Effects, w.publishCreated(&log, booking))
	if w.sheets != nil {
		res.Effects = append(res.Effects, w.enqueueSync(ctx, &log, booking))
	}

	if err := m.to(StateRedirecting); err != nil {
		return fail("internal", err)
	}
	res.CheckoutURL = checkout.URL
	res.SessionID = checkout.SessionID
	res.State = m.state
	res.Trail = m.trail
	metrics.IncSubmission("redirected")
	log.Info().Str("session_id", checkout.SessionID).Msg("booking submitted, redirecting to checkout")
	return res, nil
}

func (w *BookingWorkflow) effect(log *zerolog.Logger, name string, err error) EffectOutcome {
	metrics.IncEffect(name, err == nil)
	if err != nil {
		log.Warn().Err(err).Str("effect", name).Msg("best-effort step failed")
	}
	return EffectOutcome{Name: name, Blocking: false, OK: err == nil, Err: err}
}

// recordPaymentReference stores the session id. The write is not re-read.
func (w *BookingWorkflow) recordPaymentReference(ctx context.Context, log *zerolog.Logger, b *models.Booking, sessionID string) EffectOutcome {
	err := w.repo.SetPaymentSession(ctx, b.ID, sessionID)
	if err == nil {
		b.StripeSessionID = &sessionID
	}
	return w.effect(log, EffectPaymentReference, err)
}

func (w *BookingWorkflow) sendConfirmation(ctx context.Context, log *zerolog.Logger, req *models.BookingRequest, bearer string) EffectOutcome {
	conf := &models.Confirmation{
		Name:          validation.SanitizeForEmail(req.Name),
		Email:         req.Email,
		Service:       req.Service,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Phone:         validation.SanitizeForEmail(req.Phone),
	}
	if req.Notes != nil {
		notes := validation.SanitizeForEmail(*req.Notes)
		conf.Notes = &notes
	}

	var err error
	if w.mailer != nil {
		if err = w.mailer.SendConfirmation(ctx, conf, bearer); err != nil {
			err = fmt.Errorf("%w: %w", ErrNotification, err)
		}
	}
	return w.effect(log, EffectConfirmationEmail, err)
}

func (w *BookingWorkflow) publishCreated(log *zerolog.Logger, b *models.Booking) EffectOutcome {
	var err error
	if w.eventBus != nil {
		err = w.eventBus.PublishJSON(events.EventBookingCreated, events.PayloadFromBooking(b))
	}
	return w.effect(log, EffectStaffEvent, err)
}

func (w *BookingWorkflow) enqueueSync(ctx context.Context, log *zerolog.Logger, b *models.Booking) EffectOutcome {
	err := w.sheets.EnqueueTask(ctx, "upsert", b.ID, b, "")
	return w.effect(log, EffectSheetsSync, err)
}
