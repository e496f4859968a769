package validation

import "strings"

const (
	msgFillAllFields    = "Please fill in all fields"
	msgInvalidEmail     = "Please enter a valid email address"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgPasswordMismatch = "Passwords do not match"
)

// SignInForm is the credentials form of the sign-in page.
type SignInForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpForm is the registration form.
type SignUpForm struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FullName        string `json:"full_name"`
	ConfirmPassword string `json:"confirm_password"`
}

// ValidateSignIn checks presence and email shape.
func ValidateSignIn(form SignInForm) (SignInForm, error) {
	form.Email = strings.TrimSpace(form.Email)
	if form.Email == "" || form.Password == "" {
		return form, &ValidationError{Message: msgFillAllFields}
	}
	if err := engine().Var(form.Email, "loose_email"); err != nil {
		return form, &ValidationError{Field: "email", Message: msgInvalidEmail}
	}
	return form, nil
}

// ValidateSignUp checks presence, email shape, password length and confirmation, in that order.
func ValidateSignUp(form SignUpForm) (SignUpForm, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.FullName = strings.TrimSpace(form.FullName)
	if form.Email == "" || form.Password == "" || form.FullName == "" || form.ConfirmPassword == "" {
		return form, &ValidationError{Message: msgFillAllFields}
	}

	v := engine()
	if err := v.Var(form.Email, "loose_email"); err != nil {
		return form, &ValidationError{Field: "email", Message: msgInvalidEmail}
	}
	if err := v.Var(form.Password, "min=6"); err != nil {
		return form, &ValidationError{Field: "password", Message: msgPasswordTooShort}
	}
	if err := v.VarWithValue(form.ConfirmPassword, form.Password, "eqfield"); err != nil {
		return form, &ValidationError{Field: "confirm_password", Message: msgPasswordMismatch}
	}
	return form, nil
}
