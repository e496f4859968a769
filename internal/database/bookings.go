package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barbershop/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, user_id, name, phone, email, service, preferred_date, preferred_time,
                 notes, status, payment_status, payment_amount, stripe_session_id, created_at, updated_at`

// CreateBooking inserts a new booking. ID, CreatedAt and UpdatedAt are assigned here.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	_, err := db.exec(ctx, query,
		booking.ID,
		nullString(booking.UserID),
		booking.Name,
		booking.Phone,
		booking.Email,
		booking.Service,
		booking.PreferredDate,
		booking.PreferredTime,
		booking.Notes,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentAmount,
		booking.StripeSessionID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookings returns every booking, newest first.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	rows, err := db.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus changes only the status column of one booking.
func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return requireRow(result)
}

// SetPaymentSession stores the external checkout reference.
func (db *DB) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE bookings SET stripe_session_id = ?, updated_at = ? WHERE id = ?`
	result, err := db.exec(ctx, query, sessionID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set payment session: %w", err)
	}
	return requireRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b             models.Booking
		userID        sql.NullString
		notes         sql.NullString
		paymentStatus sql.NullString
		paymentAmount sql.NullInt64
		sessionID     sql.NullString
	)
	err := row.Scan(
		&b.ID, &userID, &b.Name, &b.Phone, &b.Email, &b.Service, &b.PreferredDate, &b.PreferredTime,
		&notes, &b.Status, &paymentStatus, &paymentAmount, &sessionID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.UserID = userID.String
	b.Notes = stringPtr(notes)
	b.PaymentStatus = stringPtr(paymentStatus)
	b.StripeSessionID = stringPtr(sessionID)
	if paymentAmount.Valid {
		amount := paymentAmount.Int64
		b.PaymentAmount = &amount
	}
	return &b, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
