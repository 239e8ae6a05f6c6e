package jobx

import "github.com/Abraxas-365/courier/pkg/errx"

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrJobNotFound    = jobxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrInvalidJob     = jobxErrors.Register("INVALID_JOB", errx.TypeValidation, 400, "Invalid job definition")
	ErrAlreadyRunning = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Worker is already running")
	ErrTaskNotFound   = jobxErrors.Register("TASK_NOT_FOUND", errx.TypeNotFound, 404, "Scheduled task not found")
	ErrTaskRunning    = jobxErrors.Register("TASK_RUNNING", errx.TypeConflict, 409, "Scheduled task is already running")
	ErrDuplicateTask  = jobxErrors.Register("DUPLICATE_TASK", errx.TypeConflict, 409, "Scheduled task already registered")
)
