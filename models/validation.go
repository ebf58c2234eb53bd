package models

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s %s", ve.Field, ve.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ves ValidationErrors) Error() string {
	if len(ves) == 0 {
		return ""
	}
	if len(ves) == 1 {
		return ves[0].Error()
	}

	var messages []string
	for _, ve := range ves {
		messages = append(messages, ve.Error())
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

// Fields lists the offending field names in report order.
func (ves ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(ves))
	for _, ve := range ves {
		fields = append(fields, ve.Field)
	}
	return fields
}

// Operation names the argument schema a call is validated against.
type Operation string

const (
	OpImport              Operation = "import"
	OpUpdate              Operation = "update"
	OpActivate            Operation = "activate"
	OpGetDeployedRevision Operation = "get-deployed-revision"

	// Workflow pre-checks, run before the first remote call of a workflow.
	OpDeploy         Operation = "deploy"
	OpUpdateDeployed Operation = "update-deployed"
	OpPromote        Operation = "promote"
)

type schema struct {
	fields      []string
	needsBundle bool
}

var schemas = map[Operation]schema{
	OpImport: {
		fields:      []string{"Org", "API", "Username", "Password"},
		needsBundle: true,
	},
	OpUpdate: {
		fields:      []string{"Org", "API", "Username", "Password", "Revision"},
		needsBundle: true,
	},
	OpActivate: {
		fields: []string{"Org", "API", "Env", "Username", "Password", "Revision", "Override", "Delay"},
	},
	OpGetDeployedRevision: {
		fields: []string{"Org", "API", "Env", "Username", "Password"},
	},
	OpDeploy: {
		fields:      []string{"Org", "API", "Env", "Username", "Password", "Override", "Delay"},
		needsBundle: true,
	},
	OpUpdateDeployed: {
		fields:      []string{"Org", "API", "Env", "Username", "Password"},
		needsBundle: true,
	},
	OpPromote: {
		fields: []string{"Org", "API", "Env", "Username", "Password", "Override", "Delay"},
	},
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// NewValidator creates a validator reporting fields by their json names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func sharedValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = NewValidator()
	})
	return validate
}

// Validate checks the arguments of op without performing any I/O. Every
// violation is reported, in field order, options first.
func Validate(op Operation, opts *DeploymentOptions, bundle *Bundle) error {
	s, ok := schemas[op]
	if !ok {
		return fmt.Errorf("unknown operation: %q", op)
	}

	var errs ValidationErrors

	if opts == nil {
		errs = append(errs, ValidationError{Field: "options", Message: "is required"})
	} else if err := sharedValidator().StructPartial(opts, s.fields...); err != nil {
		converted, convErr := convertValidatorErrors(err, "")
		if convErr != nil {
			return convErr
		}
		errs = append(errs, converted...)
	}

	if s.needsBundle {
		if bundle == nil {
			errs = append(errs, ValidationError{Field: "bundle", Message: "is required"})
		} else if err := sharedValidator().StructPartial(bundle, "Contents"); err != nil {
			converted, convErr := convertValidatorErrors(err, "bundle.")
			if convErr != nil {
				return convErr
			}
			errs = append(errs, converted...)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// convertValidatorErrors converts go-playground validator errors to our custom format
func convertValidatorErrors(err error, prefix string) (ValidationErrors, error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}

	var errs ValidationErrors
	for _, ve := range validationErrors {
		errs = append(errs, ValidationError{
			Field:   prefix + ve.Field(),
			Message: getValidationMessage(ve),
		})
	}
	return errs, nil
}

// getValidationMessage returns a human-readable message for validation errors
func getValidationMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	default:
		return ve.Error()
	}
}
