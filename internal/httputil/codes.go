package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeNotSupported       = "NOT_SUPPORTED"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"

	CodeUsernameAlreadyExists = "USERNAME_ALREADY_EXISTS"
	CodeEmailAlreadyExists    = "EMAIL_ALREADY_EXISTS"
	CodeInvalidUsername       = "INVALID_USERNAME"
	CodeInvalidEmailFormat    = "INVALID_EMAIL_FORMAT"
	CodeWeakPassword          = "WEAK_PASSWORD"

	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"

	CodeVerificationTokenRequired = "VERIFICATION_TOKEN_REQUIRED"
	CodeInvalidVerificationToken  = "INVALID_VERIFICATION_TOKEN"
	CodeAlreadyVerified           = "ALREADY_VERIFIED"
	CodeTokenExpired              = "TOKEN_EXPIRED"
	CodeInvalidResetToken         = "INVALID_RESET_TOKEN"

	CodeRefreshTokenRequired = "REFRESH_TOKEN_REQUIRED"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"

	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"
	CodeUserNotFound       = "USER_NOT_FOUND"
)
