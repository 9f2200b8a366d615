package cli

import (
	"errors"

	"github.com/roach88/cyberaid/internal/intake"
	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
)

// reportError maps a workflow or ledger error onto an exit code and error
// code, reports it through f and returns the *ExitError.
func reportError(f *OutputFormatter, message string, err error) error {
	var pe *ledger.PersistenceError
	var iv *ledger.IntegrityViolation
	switch {
	case report.IsValidationError(err):
		return f.Fail(ExitCommandError, ErrCodeInvalid, message, err)
	case errors.Is(err, intake.ErrDuplicateReport):
		return f.Fail(ExitCommandError, ErrCodeDuplicate, message, err)
	case errors.Is(err, intake.ErrReportNotFound):
		return f.Fail(ExitCommandError, ErrCodeNotFound, message, err)
	case errors.As(err, &pe):
		return f.Fail(ExitFailure, ErrCodeWriteFailed, message, err)
	case errors.As(err, &iv):
		return f.Fail(ExitFailure, ErrCodeIntegrity, message, err)
	case ledger.IsCorruptStorage(err):
		return f.Fail(ExitFailure, ErrCodeCorrupt, message, err)
	default:
		return f.Fail(ExitFailure, ErrCodeGeneric, message, err)
	}
}
