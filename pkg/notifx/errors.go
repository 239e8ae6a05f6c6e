package notifx

import "github.com/Abraxas-365/courier/pkg/errx"

var notifxErrors = errx.NewRegistry("NOTIFX")

var (
	ErrSendFailed     = notifxErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "Failed to send email")
	ErrInvalidMessage = notifxErrors.Register("INVALID_MESSAGE", errx.TypeValidation, 400, "Invalid email message")
	ErrNoProvider     = notifxErrors.Register("NO_PROVIDER", errx.TypeConfiguration, 500, "No email provider configured")
	ErrBuildMessage   = notifxErrors.Register("BUILD_MESSAGE", errx.TypeInternal, 500, "Failed to build MIME message")
)
