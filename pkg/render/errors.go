package render

import "github.com/Abraxas-365/courier/pkg/errx"

var renderErrors = errx.NewRegistry("RENDER")

var (
	ErrCompile = renderErrors.Register("COMPILE", errx.TypeValidation, 422, "Template failed to compile")
	ErrExecute = renderErrors.Register("EXECUTE", errx.TypeValidation, 422, "Template failed to execute")
	ErrEngine  = renderErrors.Register("ENGINE", errx.TypeConfiguration, 500, "Unknown template engine")
)

// CompileError marks a failure that belongs to the template source rather
// than to the data it was executed with.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }
