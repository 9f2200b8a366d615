package report

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed report.cue
var defaultSchema string

// SchemaDefinition is the CUE definition a schema source must declare.
const SchemaDefinition = "#Report"

// ValidationError reports a snapshot that is missing required fields or
// violates the report schema. It is a caller error, never a storage fault.
type ValidationError struct {
	Missing  []string // required fields absent or blank
	Problems []string // schema violations
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required field(s): "+strings.Join(e.Missing, ", "))
	}
	if len(e.Problems) > 0 {
		parts = append(parts, strings.Join(e.Problems, "; "))
	}
	if len(parts) == 0 {
		return "invalid report"
	}
	return "invalid report: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validator checks report fields before they are anchored.
// Implementations must be safe for concurrent use.
type Validator interface {
	Validate(f Fields) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(Fields) error

// Validate calls fn(f).
func (fn ValidatorFunc) Validate(f Fields) error { return fn(f) }

// RequiredFields rejects fields with any blank required value or any value
// that is not valid UTF-8.
var RequiredFields Validator = ValidatorFunc(validateRequired)

func validateRequired(f Fields) error {
	required := []struct {
		key string
		val string
	}{
		{FieldReportID, f.ReportID},
		{FieldName, f.Name},
		{FieldMobile, f.Mobile},
		{FieldPlace, f.Place},
		{FieldIncidentDate, f.IncidentDate},
		{FieldReportingDate, f.ReportingDate},
		{FieldDescription, f.Description},
		{FieldCrimeType, f.CrimeType},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}

	var problems []string
	for key, val := range f.Map() {
		if !utf8.ValidString(val) {
			problems = append(problems, fmt.Sprintf("%s: not valid UTF-8", key))
		}
	}
	slices.Sort(problems)

	if len(missing) > 0 || len(problems) > 0 {
		return &ValidationError{Missing: missing, Problems: problems}
	}
	return nil
}

// All runs validators in order and returns the first error.
func All(validators ...Validator) Validator {
	return ValidatorFunc(func(f Fields) error {
		for _, v := range validators {
			if err := v.Validate(f); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaValidator checks fields against a CUE #Report definition.
type SchemaValidator struct {
	// cue.Context is not safe for concurrent use.
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// NewSchemaValidator compiles src, which must declare SchemaDefinition.
func NewSchemaValidator(src string) (*SchemaValidator, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}

	def := value.LookupPath(cue.ParsePath(SchemaDefinition))
	if !def.Exists() {
		return nil, fmt.Errorf("report schema: %s not defined", SchemaDefinition)
	}
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("report schema: %w", err)
	}

	return &SchemaValidator{ctx: ctx, def: def}, nil
}

// DefaultSchemaValidator returns a validator for the built-in schema.
func DefaultSchemaValidator() (*SchemaValidator, error) {
	return NewSchemaValidator(defaultSchema)
}

// LoadSchemaValidator reads a CUE schema file. An empty path selects the
// built-in schema.
func LoadSchemaValidator(path string) (*SchemaValidator, error) {
	if path == "" {
		return DefaultSchemaValidator()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report schema: %w", err)
	}
	return NewSchemaValidator(string(src))
}

// Validate unifies the fields with the schema and requires a concrete result.
func (v *SchemaValidator) Validate(f Fields) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.ctx.Encode(f.Map())
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	unified := v.def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}
