package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barbershop/internal/email"
	"barbershop/internal/export"
	"barbershop/internal/models"
	"barbershop/internal/service"
	"barbershop/internal/validation"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) handleHealth(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) handleServices(c *gin.Context) {
	labels := models.Catalog()
	services := make([]models.Service, 0, len(labels))
	for _, label := range labels {
		services = append(services, models.Service{Name: label, Price: validation.ExtractPrice(label)})
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (s *HTTPServer) handleSignUp(c *gin.Context) {
	var form validation.SignUpForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	tokens, err := s.auth.SignUp(c.Request.Context(), form)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokens)
}

func (s *HTTPServer) handleSignIn(c *gin.Context) {
	var form validation.SignInForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	tokens, err := s.auth.SignIn(c.Request.Context(), form)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *HTTPServer) handleRefresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	tokens, err := s.auth.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *HTTPServer) handleSignOut(c *gin.Context) {
	if err := s.auth.Invalidate(c.Request.Context(), sessionFrom(c).BearerToken); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (s *HTTPServer) handleSession(c *gin.Context) {
	sess := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    sess.UserID,
		"email":      sess.Email,
		"is_admin":   sess.IsAdmin,
		"expires_at": sess.ExpiresAt,
	})
}

func (s *HTTPServer) handleCreateBooking(c *gin.Context) {
	var form validation.BookingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := s.workflow.Submit(c.Request.Context(), sessionFrom(c), form)
	if err != nil {
		status, msg := errorResponse(err)
		_ = c.Error(err)
		body := gin.H{"error": msg, "state": res.State}
		if res.Booking != nil {
			body["booking_id"] = res.Booking.ID
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking_id":   res.Booking.ID,
		"checkout_url": res.CheckoutURL,
		"redirect_url": res.CheckoutURL,
		"session_id":   res.SessionID,
		"state":        res.State,
		"effects":      res.Effects,
	})
}

func (s *HTTPServer) handleListBookings(c *gin.Context) {
	list, err := s.admin.ListBookings(c.Request.Context(), sessionFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (s *HTTPServer) handleUpdateStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	list, err := s.admin.UpdateStatus(c.Request.Context(), sessionFrom(c), c.Param("id"), body.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking status updated", "bookings": list})
}

func (s *HTTPServer) handleExportBookings(c *gin.Context) {
	list, err := s.admin.ListBookings(c.Request.Context(), sessionFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, list); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "Failed to export bookings")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(time.Now())))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *HTTPServer) handleResyncSheets(c *gin.Context) {
	list, err := s.admin.ListBookings(c.Request.Context(), sessionFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if s.sheets == nil {
		writeError(c, http.StatusServiceUnavailable, "Spreadsheet sync is not configured")
		return
	}
	if err := s.sheets.ReplaceBookingsSheet(c.Request.Context(), list); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "Failed to sync spreadsheet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Spreadsheet synced", "rows": len(list)})
}

// handleSendConfirmation renders and sends the confirmation email. Fields
// arrive already escaped by the booking workflow.
func (s *HTTPServer) handleSendConfirmation(c *gin.Context) {
	if s.mailer == nil {
		writeError(c, http.StatusServiceUnavailable, "Email delivery is not configured")
		return
	}

	var conf models.Confirmation
	if err := c.ShouldBindJSON(&conf); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := s.mailer.SendConfirmation(c.Request.Context(), &conf, ""); err != nil {
		_ = c.Error(err)
		if errors.Is(err, email.ErrNoRecipient) {
			writeError(c, http.StatusBadRequest, "Recipient email is required")
			return
		}
		writeError(c, http.StatusInternalServerError, service.UserMessage(fmt.Errorf("%w: %w", service.ErrNotification, err)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "to": conf.Email})
}
