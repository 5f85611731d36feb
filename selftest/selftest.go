// Package selftest runs firmware conformance units against a protocol
// directory at fixed points of the boot flow.
package selftest

import (
	"errors"
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrFailure marks a failed unit.
var ErrFailure = errors.New("selftest failure")

// Phase selects when a unit runs.
type Phase int

const (
	// ExecuteBeforeBootExit sets up and executes while boot services are
	// still available.
	ExecuteBeforeBootExit Phase = iota
	// SetupBeforeBootExit sets up before and executes after boot exit.
	SetupBeforeBootExit
)

func (p Phase) String() string {
	switch p {
	case ExecuteBeforeBootExit:
		return "execute-before-boot-exit"
	case SetupBeforeBootExit:
		return "setup-before-boot-exit"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Env is what a unit gets at setup time.
type Env struct {
	Directory *efi.Directory
	Logger    *zap.SugaredLogger
}

// Unit is one registered test. Setup and Teardown are optional.
type Unit struct {
	Name     string
	Phase    Phase
	Setup    func(env *Env) error
	Execute  func() error
	Teardown func() error
}

// Result of one unit.
type Result struct {
	Name string
	Err  error
}

type Runner struct {
	units  []*Unit
	logger *zap.SugaredLogger
}

func NewRunner(logger *zap.SugaredLogger, units ...*Unit) *Runner {
	return &Runner{units: units, logger: logger}
}

func (r *Runner) logf(format string, v ...any) {
	if r.logger != nil {
		r.logger.Infof(format, v...)
	}
}

func (r *Runner) loge(format string, v ...any) {
	if r.logger != nil {
		r.logger.Errorf(format, v...)
	}
}

// Add registers more units.
func (r *Runner) Add(units ...*Unit) {
	r.units = append(r.units, units...)
}

// Run executes every unit of phase in registration order. The returned
// error combines all failures, each wrapping ErrFailure.
func (r *Runner) Run(phase Phase, env *Env) ([]Result, error) {
	var results []Result
	var errs error
	for _, u := range r.units {
		if u.Phase != phase {
			continue
		}
		err := r.runUnit(u, env)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrFailure, u.Name, err)
			r.loge("'%s' failed: %v", u.Name, err)
		} else {
			r.logf("'%s' succeeded", u.Name)
		}
		results = append(results, Result{Name: u.Name, Err: err})
		errs = multierr.Append(errs, err)
	}
	r.logf("Summary: %d failures", len(multierr.Errors(errs)))
	return results, errs
}

func (r *Runner) runUnit(u *Unit, env *Env) (err error) {
	r.logf("Setting up '%s'", u.Name)
	if u.Setup != nil {
		if err := u.Setup(env); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	if u.Teardown != nil {
		defer func() {
			err = multierr.Append(err, u.Teardown())
		}()
	}
	r.logf("Executing '%s'", u.Name)
	if u.Execute == nil {
		return nil
	}
	return u.Execute()
}
