package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"barbershop/internal/auth"
	"barbershop/internal/events"
	"barbershop/internal/models"
	"barbershop/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type workflowDeps struct {
	repo     *mockRepo
	gateway  *mockGateway
	mailer   *mockMailer
	events   *mockPublisher
	sync     *mockSync
	workflow *BookingWorkflow
}

func newWorkflow() *workflowDeps {
	logger := zerolog.New(io.Discard)
	d := &workflowDeps{
		repo:    new(mockRepo),
		gateway: new(mockGateway),
		mailer:  new(mockMailer),
		events:  new(mockPublisher),
		sync:    new(mockSync),
	}
	d.workflow = NewBookingWorkflow(d.repo, d.gateway, d.mailer, d.events, d.sync, &logger)
	return d
}

func validForm() validation.BookingForm {
	return validation.BookingForm{
		Name:          "John <Smith>",
		Phone:         "+27123456789",
		Email:         "john@example.com",
		Service:       "Classic Haircut - R250",
		PreferredDate: "2025-06-01",
		PreferredTime: "14:00",
		Notes:         "",
	}
}

func customer() *auth.Session {
	return &auth.Session{UserID: "user-1", Email: "john@example.com", BearerToken: "tok"}
}

var happyTrail = []State{
	StateIdle, StateValidating, StatePersisting, StateAwaitingPayment,
	StatePaymentSessionCreated, StateNotifying, StateRedirecting,
}

func TestWorkflow_SubmitRedirectsToCheckout(t *testing.T) {
	d := newWorkflow()
	ctx := context.Background()

	var order []string
	d.repo.On("CreateBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Status == models.StatusPending &&
			*b.PaymentStatus == models.PaymentStatusPending &&
			*b.PaymentAmount == 250 &&
			b.Notes == nil &&
			b.UserID == "user-1"
	})).Run(func(mock.Arguments) { order = append(order, "persist") }).Return(nil).Once()

	d.gateway.On("CreateCheckoutSession", ctx, &models.CheckoutRequest{
		BookingID:     "booking-1",
		Amount:        250,
		CustomerEmail: "john@example.com",
		CustomerName:  "John <Smith>",
		Service:       "Classic Haircut - R250",
	}, "tok").Run(func(mock.Arguments) { order = append(order, "payment") }).
		Return(&models.CheckoutSession{URL: "https://pay.example/cs_1", SessionID: "cs_1"}, nil).Once()

	d.repo.On("SetPaymentSession", ctx, "booking-1", "cs_1").
		Run(func(mock.Arguments) { order = append(order, "reference") }).Return(nil).Once()

	d.mailer.On("SendConfirmation", ctx, mock.MatchedBy(func(c *models.Confirmation) bool {
		return c.Name == "John &lt;Smith&gt;" &&
			c.Service == "Classic Haircut - R250" &&
			c.Email == "john@example.com" &&
			c.Notes == nil
	}), "tok").Run(func(mock.Arguments) { order = append(order, "email") }).Return(nil).Once()

	d.events.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(nil).Once()
	d.sync.On("EnqueueTask", ctx, "upsert", "booking-1", mock.Anything, "").Return(nil).Once()

	res, err := d.workflow.Submit(ctx, customer(), validForm())
	require.NoError(t, err)

	assert.Equal(t, StateRedirecting, res.State)
	assert.Equal(t, happyTrail, res.Trail)
	assert.Equal(t, "https://pay.example/cs_1", res.CheckoutURL)
	assert.Equal(t, []string{"persist", "payment", "reference", "email"}, order)
	require.NotNil(t, res.Booking.StripeSessionID)
	assert.Equal(t, "cs_1", *res.Booking.StripeSessionID)

	require.Len(t, res.Effects, 4)
	for _, e := range res.Effects {
		assert.False(t, e.Blocking)
		assert.True(t, e.OK, e.Name)
	}
	d.repo.AssertExpectations(t)
	d.gateway.AssertExpectations(t)
	d.mailer.AssertExpectations(t)
}

func TestWorkflow_UnauthenticatedWritesNothing(t *testing.T) {
	d := newWorkflow()

	res, err := d.workflow.Submit(context.Background(), nil, validForm())
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, "Please sign in to book an appointment.", UserMessage(err))
	assert.Equal(t, StateIdle, res.State)
	assert.Equal(t, []State{StateIdle, StateValidating, StateIdle}, res.Trail)
	assert.Nil(t, res.Booking)

	d.repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	d.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
	d.mailer.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflow_EmailDeliveryFailureDoesNotBlock(t *testing.T) {
	d := newWorkflow()
	ctx := context.Background()
	form := validForm()
	form.Notes = "  please use <b>scissors</b>  "

	d.repo.On("CreateBooking", ctx, mock.Anything).Return(nil).Once()
	d.gateway.On("CreateCheckoutSession", ctx, mock.Anything, "tok").
		Return(&models.CheckoutSession{URL: "https://pay.example/cs_2", SessionID: "cs_2"}, nil).Once()
	d.repo.On("SetPaymentSession", ctx, "booking-1", "cs_2").Return(nil).Once()
	d.mailer.On("SendConfirmation", ctx, mock.MatchedBy(func(c *models.Confirmation) bool {
		return c.Notes != nil && *c.Notes == "please use &lt;b&gt;scissors&lt;/b&gt;"
	}), "tok").Return(errors.New("smtp down")).Once()
	d.events.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
	d.sync.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := d.workflow.Submit(ctx, customer(), form)
	require.NoError(t, err)
	assert.Equal(t, StateRedirecting, res.State)
	assert.Equal(t, "https://pay.example/cs_2", res.CheckoutURL)

	var email EffectOutcome
	for _, e := range res.Effects {
		if e.Name == EffectConfirmationEmail {
			email = e
		}
	}
	assert.False(t, email.OK)
	assert.False(t, email.Blocking)
	assert.ErrorIs(t, email.Err, ErrNotification)
}

func TestWorkflow_PaymentFailureLeavesPendingRecord(t *testing.T) {
	ctx := context.Background()

	cases := map[string]struct {
		session *models.CheckoutSession
		err     error
	}{
		"TransportError": {err: errors.New("connection reset")},
		"MissingURL":     {session: &models.CheckoutSession{SessionID: "cs_x"}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := newWorkflow()
			d.repo.On("CreateBooking", ctx, mock.Anything).Return(nil).Once()
			d.gateway.On("CreateCheckoutSession", ctx, mock.Anything, "tok").Return(tc.session, tc.err).Once()

			res, err := d.workflow.Submit(ctx, customer(), validForm())
			assert.ErrorIs(t, err, ErrPaymentSession)
			assert.NotContains(t, UserMessage(err), "connection reset")
			assert.Equal(t, StateIdle, res.State)
			assert.Empty(t, res.CheckoutURL)

			require.NotNil(t, res.Booking)
			assert.Equal(t, models.StatusPending, res.Booking.Status)
			assert.Nil(t, res.Booking.StripeSessionID)

			d.repo.AssertNotCalled(t, "SetPaymentSession", mock.Anything, mock.Anything, mock.Anything)
			d.mailer.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestWorkflow_ValidationFailure(t *testing.T) {
	d := newWorkflow()
	form := validForm()
	form.Name = "J"
	form.Phone = "123"

	res, err := d.workflow.Submit(context.Background(), customer(), form)
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Name must be at least 2 characters", UserMessage(err))
	assert.Equal(t, StateIdle, res.State)
	d.repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestWorkflow_PersistenceFailure(t *testing.T) {
	d := newWorkflow()
	ctx := context.Background()
	d.repo.On("CreateBooking", ctx, mock.Anything).Return(errors.New("disk full")).Once()

	res, err := d.workflow.Submit(ctx, customer(), validForm())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "Failed to submit booking. Please try again.", UserMessage(err))
	assert.Equal(t, []State{StateIdle, StateValidating, StatePersisting, StateIdle}, res.Trail)
	assert.Nil(t, res.Booking)
	d.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflow_PaymentReferenceFailureStillRedirects(t *testing.T) {
	d := newWorkflow()
	ctx := context.Background()

	d.repo.On("CreateBooking", ctx, mock.Anything).Return(nil).Once()
	d.gateway.On("CreateCheckoutSession", ctx, mock.Anything, "tok").
		Return(&models.CheckoutSession{URL: "https://pay.example/cs_3", SessionID: "cs_3"}, nil).Once()
	d.repo.On("SetPaymentSession", ctx, "booking-1", "cs_3").Return(errors.New("locked")).Once()
	d.mailer.On("SendConfirmation", ctx, mock.Anything, "tok").Return(nil).Once()
	d.events.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus closed"))
	d.sync.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := d.workflow.Submit(ctx, customer(), validForm())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_3", res.CheckoutURL)
	assert.Nil(t, res.Booking.StripeSessionID)
	assert.False(t, res.Effects[0].OK)
	assert.Equal(t, EffectPaymentReference, res.Effects[0].Name)
	d.mailer.AssertExpectations(t)
}

func TestWorkflow_NoSyncWorker(t *testing.T) {
	logger := zerolog.New(io.Discard)
	d := newWorkflow()
	w := NewBookingWorkflow(d.repo, d.gateway, d.mailer, nil, nil, &logger)
	ctx := context.Background()

	d.repo.On("CreateBooking", ctx, mock.Anything).Return(nil).Once()
	d.gateway.On("CreateCheckoutSession", ctx, mock.Anything, "tok").
		Return(&models.CheckoutSession{URL: "https://pay.example/cs_4", SessionID: "cs_4"}, nil).Once()
	d.repo.On("SetPaymentSession", ctx, "booking-1", "cs_4").Return(nil).Once()
	d.mailer.On("SendConfirmation", ctx, mock.Anything, "tok").Return(nil).Once()

	res, err := w.Submit(ctx, customer(), validForm())
	require.NoError(t, err)
	assert.Len(t, res.Effects, 3)
}

func TestWorkflow_SubmissionLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidFormsDoNotCount", func(t *testing.T) {
		d := newWorkflow()
		limiter := new(mockLimiter)
		d.workflow.WithSubmissionLimiter(limiter)

		form := validForm()
		form.Phone = "12"
		for i := 0; i < 3; i++ {
			_, err := d.workflow.Submit(ctx, customer(), form)
			var verr *validation.ValidationError
			require.ErrorAs(t, err, &verr)
		}
		_, err := d.workflow.Submit(ctx, nil, validForm())
		require.ErrorIs(t, err, ErrAuthRequired)

		limiter.AssertNotCalled(t, "CheckRateLimit", mock.Anything, mock.Anything)
	})

	t.Run("RejectedBeforePersisting", func(t *testing.T) {
		d := newWorkflow()
		limiter := new(mockLimiter)
		d.workflow.WithSubmissionLimiter(limiter)
		limiter.On("CheckRateLimit", ctx, "user-1").Return(auth.ErrRateLimited).Once()

		res, err := d.workflow.Submit(ctx, customer(), validForm())
		require.ErrorIs(t, err, auth.ErrRateLimited)
		assert.Equal(t, StateIdle, res.State)
		assert.Equal(t, []State{StateIdle, StateValidating, StateIdle}, res.Trail)
		assert.Nil(t, res.Booking)
		assert.Equal(t, "Too many booking attempts. Please try again later.", UserMessage(err))

		limiter.AssertExpectations(t)
		d.repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
		d.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateValidating))
	assert.True(t, CanTransition(StateAwaitingPayment, StateIdle))
	assert.False(t, CanTransition(StateIdle, StatePersisting))
	assert.False(t, CanTransition(StateNotifying, StateIdle))
	assert.False(t, CanTransition(StateRedirecting, StateIdle))

	m := newMachine()
	assert.Error(t, m.to(StateRedirecting))
	assert.Equal(t, StateIdle, m.state)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Access denied. Admin privileges required.", UserMessage(ErrAccessDenied))
	assert.Equal(t, "Failed to load bookings", UserMessage(ErrFetch))
	assert.Equal(t, "An unexpected error occurred. Please try again.", UserMessage(errors.New("x")))
}
