package vrouter

import "errors"

// Validator accumulates structural-validation errors found while inspecting
// a frame, so a ValidateSize-style method can report every problem it finds
// without allocating a []error on the caller's behalf for the common case of
// zero or one errors. The zero value is ready to use.
type Validator struct {
	accum []error
}

// ResetErr clears any accumulated errors, readying v for reuse.
func (v *Validator) ResetErr() {
	v.accum = v.accum[:0]
}

// AddError accumulates err. Safe to call with a nil error, which is ignored.
func (v *Validator) AddError(err error) {
	if err == nil {
		return
	}
	v.accum = append(v.accum, err)
}

// HasError reports whether any error has been accumulated since the last reset.
func (v *Validator) HasError() bool { return len(v.accum) != 0 }

// Err returns the accumulated errors joined with errors.Join, or nil if none.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// ErrPop returns and removes the first accumulated error, or nil if none.
// Remaining errors, if any, stay queued for a subsequent call.
func (v *Validator) ErrPop() error {
	if len(v.accum) == 0 {
		return nil
	}
	err := v.accum[0]
	v.accum = v.accum[1:]
	return err
}
