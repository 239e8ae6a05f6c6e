package messages

import "github.com/Abraxas-365/courier/pkg/errx"

var Errors = errx.NewRegistry("MESSAGES")

var (
	ErrNoStore          = Errors.Register("NO_STORE", errx.TypeConfiguration, 500, "No store could be resolved")
	ErrNoActiveLanguage = Errors.Register("NO_ACTIVE_LANGUAGE", errx.TypeConfiguration, 500, "No active language could be loaded")
	ErrNoEmailAccount   = Errors.Register("NO_EMAIL_ACCOUNT", errx.TypeConfiguration, 500, "No email account is configured")
	ErrInvalidArgument  = Errors.Register("INVALID_ARGUMENT", errx.TypeValidation, 400, "Required argument is missing")
	ErrInvalidMessage   = Errors.Register("INVALID_MESSAGE", errx.TypeValidation, 422, "Queued message failed validation")
	ErrStorage          = Errors.Register("STORAGE", errx.TypeExternal, 502, "Message storage failed")
	ErrEnqueue          = Errors.Register("ENQUEUE", errx.TypeExternal, 502, "Message could not be queued")
	ErrNotFound         = Errors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Record not found")
)
