package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/hamed0406/waithttp/internal/endpoint"
)

var validate = validator.New()

// Validate reports every problem in cfg at once rather than the first one.
func Validate(cfg *Config) error {
	return multierr.Append(ValidateStruct(cfg), ValidateProbe(cfg.Probe))
}

// ValidateStruct checks the validate tags of v, one error per failing field.
func ValidateStruct(v any) error {
	verr := validate.Struct(v)
	if verr == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(verr, &fields) {
		return verr
	}
	var err error
	for _, fe := range fields {
		err = multierr.Append(err, fieldError(fe))
	}
	return err
}

// ValidateProbe runs the checks that need more than struct tags: the endpoint
// must build and the response regex must compile. A skipped probe is never
// built, so it always passes.
func ValidateProbe(p Probe) error {
	if p.Skip {
		return nil
	}
	var err error
	if _, berr := endpoint.Build(p.Protocol, p.Host, p.Port, p.File); berr != nil {
		err = multierr.Append(err, berr)
	}
	if p.ResponseRegex != "" {
		if _, rerr := regexp.Compile(p.ResponseRegex); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("responseregex: %w", rerr))
		}
	}
	return err
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: required", fe.Namespace())
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s], got %v", fe.Namespace(), fe.Param(), fe.Value())
	case "gte", "lte":
		return fmt.Errorf("%s: must be %s %s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	case "url":
		return fmt.Errorf("%s: must be a URL", fe.Namespace())
	default:
		return fmt.Errorf("%s: failed %s validation", fe.Namespace(), fe.Tag())
	}
}
