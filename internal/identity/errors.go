package identity

// Error codes reported by a Provider.
const (
	CodeInvalidEmail      = "invalid-email"
	CodeUserDisabled      = "user-disabled"
	CodeUserNotFound      = "user-not-found"
	CodeWrongPassword     = "wrong-password"
	CodeWeakPassword      = "weak-password"
	CodeEmailAlreadyInUse = "email-already-in-use"
)

var messages = map[string]string{
	CodeInvalidEmail:      "Please enter a valid email address",
	CodeUserDisabled:      "This account has been deactivated",
	CodeUserNotFound:      "Account not found",
	CodeWrongPassword:     "Invalid password",
	CodeWeakPassword:      "Password should be at least 6 characters",
	CodeEmailAlreadyInUse: "This email is already registered",
}

// AuthError is a classified sign-up or sign-in failure.
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	if m, ok := messages[e.Code]; ok {
		return m
	}
	return "authentication failed"
}

// Is matches any AuthError carrying the same code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidEmail      = &AuthError{Code: CodeInvalidEmail}
	ErrUserDisabled      = &AuthError{Code: CodeUserDisabled}
	ErrUserNotFound      = &AuthError{Code: CodeUserNotFound}
	ErrWrongPassword     = &AuthError{Code: CodeWrongPassword}
	ErrWeakPassword      = &AuthError{Code: CodeWeakPassword}
	ErrEmailAlreadyInUse = &AuthError{Code: CodeEmailAlreadyInUse}
)
