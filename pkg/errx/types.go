package errx

// Type represents the category of error
type Type string

const (
	TypeInternal      Type = "INTERNAL"
	TypeValidation    Type = "VALIDATION"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeBusiness      Type = "BUSINESS"
	TypeExternal      Type = "EXTERNAL"

	// TypeConfiguration marks a deployment that is missing data the system
	// cannot run without (no store, no published language, no sender account).
	TypeConfiguration Type = "CONFIGURATION"
)

func (t Type) String() string {
	return string(t)
}

// Status returns the HTTP status suggested for the type.
func (t Type) Status() int {
	switch t {
	case TypeValidation:
		return 400
	case TypeAuthorization:
		return 401
	case TypeNotFound:
		return 404
	case TypeConflict:
		return 409
	case TypeBusiness:
		return 422
	case TypeExternal:
		return 502
	default:
		return 500
	}
}
