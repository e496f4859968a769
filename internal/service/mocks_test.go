package service

import (
	"context"

	"barbershop/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil && b.ID == "" {
		b.ID = "booking-1"
	}
	return args.Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockRepo) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	return m.Called(ctx, id, sessionID).Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return "mock" }
func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest, bearer string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, req, bearer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSession), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendConfirmation(ctx context.Context, c *models.Confirmation, bearer string) error {
	return m.Called(ctx, c, bearer).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockSync struct {
	mock.Mock
}

func (m *mockSync) EnqueueTask(ctx context.Context, taskType, bookingID string, b *models.Booking, status string) error {
	return m.Called(ctx, taskType, bookingID, b, status).Error(0)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckRateLimit(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
