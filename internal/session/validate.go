package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the whole description: parameter ranges, required train
// data, and side information attached only to existing modes.
func (d *Description) Validate() error {
	var errs []error

	if err := getValidator().Struct(&d.Params); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%w: %s failed %q%s (value %v)",
					ErrInvalidValue, fe.Namespace(), fe.Tag(), param(fe.Param()), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if d.Train == nil || d.Train.Matrix == nil {
		errs = append(errs, ErrMissingTrain)
	}

	for _, mode := range d.SideInfoModes() {
		if mode >= len(d.Params.Priors) {
			errs = append(errs, fmt.Errorf("%w: side information for mode %d but only %d priors",
				ErrInvalidValue, mode, len(d.Params.Priors)))
		}
	}

	return joinErrors(errs)
}

// Init validates the description and hands it off. After Init every setter
// fails with ErrHandedOff. Init itself may be called only once.
func (d *Description) Init() error {
	if d.state == StateHandedOff {
		return ErrHandedOff
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	d.state = StateHandedOff
	return nil
}

func param(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// joinErrors combines multiple errors, keeping every one reachable by errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return &multiError{errs: errs, msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - ")}
}

type multiError struct {
	errs []error
	msg  string
}

func (e *multiError) Error() string   { return e.msg }
func (e *multiError) Unwrap() []error { return e.errs }
