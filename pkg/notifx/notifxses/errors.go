package notifxses

import "github.com/Abraxas-365/courier/pkg/errx"

var sesErrors = errx.NewRegistry("NOTIFX_SES")

var (
	ErrSendFailed    = sesErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "SES send email failed")
	ErrSendRawFailed = sesErrors.Register("SEND_RAW_FAILED", errx.TypeExternal, 502, "SES send raw email failed")
)
