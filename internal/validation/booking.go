package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"barbershop/internal/models"

	"github.com/go-playground/validator/v10"
)

// BookingForm is the raw booking submission as sent by the client.
// Field order is significant: the first failing field is reported.
type BookingForm struct {
	Name          string `json:"name" validate:"min=2,max=100"`
	Phone         string `json:"phone" validate:"phone"`
	Email         string `json:"email" validate:"email,max=255"`
	Service       string `json:"service" validate:"catalog"`
	PreferredDate string `json:"preferred_date" validate:"ymd"`
	PreferredTime string `json:"preferred_time" validate:"hhmm"`
	Notes         string `json:"notes" validate:"max=500"`
}

// ValidationError identifies the first violated constraint of a submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern  = regexp.MustCompile(`^\d{2}:\d{2}$`)
	loosePattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

var bookingMessages = map[string]string{
	"name.min":            "Name must be at least 2 characters",
	"name.max":            "Name must be less than 100 characters",
	"phone.phone":         "Invalid phone format. Use 10-15 digits, optionally starting with +",
	"email.email":         "Invalid email address",
	"email.max":           "Email too long",
	"service.catalog":     "Please select a valid service",
	"preferred_date.ymd":  "Invalid date format",
	"preferred_time.hhmm": "Invalid time format",
	"notes.max":           "Notes must be less than 500 characters",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "phone", matches(phonePattern))
		mustRegister(v, "ymd", matches(datePattern))
		mustRegister(v, "hhmm", matches(timePattern))
		mustRegister(v, "loose_email", matches(loosePattern))
		mustRegister(v, "catalog", func(fl validator.FieldLevel) bool {
			return models.IsCatalogService(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidateBooking trims every field, checks it and returns the normalized request.
func ValidateBooking(form BookingForm) (*models.BookingRequest, error) {
	form = form.trimmed()

	if err := engine().Struct(form); err != nil {
		return nil, firstError(err, bookingMessages)
	}

	req := &models.BookingRequest{
		Name:          form.Name,
		Phone:         form.Phone,
		Email:         form.Email,
		Service:       form.Service,
		PreferredDate: form.PreferredDate,
		PreferredTime: form.PreferredTime,
	}
	if form.Notes != "" {
		notes := form.Notes
		req.Notes = &notes
	}
	return req, nil
}

func (f BookingForm) trimmed() BookingForm {
	return BookingForm{
		Name:          strings.TrimSpace(f.Name),
		Phone:         strings.TrimSpace(f.Phone),
		Email:         strings.TrimSpace(f.Email),
		Service:       strings.TrimSpace(f.Service),
		PreferredDate: strings.TrimSpace(f.PreferredDate),
		PreferredTime: strings.TrimSpace(f.PreferredTime),
		Notes:         strings.TrimSpace(f.Notes),
	}
}

func firstError(err error, messages map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return &ValidationError{Field: fe.Field(), Message: msg}
	}
	return &ValidationError{Field: fe.Field(), Message: "Invalid " + strings.ReplaceAll(fe.Field(), "_", " ")}
}
