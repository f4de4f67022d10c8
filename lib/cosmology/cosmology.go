// Package cosmology describes the Lambda-CDM model an identification project
// is run under. Only the parameters and their canonical text form matter
// here; distance calculations belong to the downstream pipeline.
package cosmology

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// Defaults used when only H0, Om0 and Ode0 are given.
const (
	DefaultTcmb0 = 0.0
	DefaultNeff  = 3.04
)

// LambdaCDM is a Lambda-CDM cosmology with a cosmological constant and
// optional curvature.
type LambdaCDM struct {
	// Hubble constant at z=0 in km / (Mpc s)
	H0 float64
	// matter density parameter at z=0
	Om0 float64
	// dark energy density parameter at z=0
	Ode0 float64
	// CMB temperature at z=0 in K
	Tcmb0 float64
	// effective number of neutrino species
	Neff float64
}

// New returns a LambdaCDM with default Tcmb0 and Neff.
func New(h0, om0, ode0 float64) LambdaCDM {
	return LambdaCDM{H0: h0, Om0: om0, Ode0: ode0, Tcmb0: DefaultTcmb0, Neff: DefaultNeff}
}

// Validate rejects unphysical parameter sets.
func (c LambdaCDM) Validate() error {
	for name, v := range map[string]float64{
		"H0": c.H0, "Om0": c.Om0, "Ode0": c.Ode0, "Tcmb0": c.Tcmb0, "Neff": c.Neff,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return oops.Errorf("cosmology parameter %s must be finite, got %v", name, v)
		}
	}
	if c.H0 <= 0 {
		return oops.Errorf("H0 must be positive, got %v", c.H0)
	}
	if c.Om0 < 0 {
		return oops.Errorf("Om0 cannot be negative, got %v", c.Om0)
	}
	if c.Tcmb0 < 0 {
		return oops.Errorf("Tcmb0 cannot be negative, got %v", c.Tcmb0)
	}
	if c.Neff < 0 {
		return oops.Errorf("Neff cannot be negative, got %v", c.Neff)
	}
	return nil
}

// Ok0 is the curvature density parameter at z=0.
func (c LambdaCDM) Ok0() float64 {
	return 1 - c.Om0 - c.Ode0
}

// IsFlat reports whether Om0 + Ode0 is 1 within floating point noise.
func (c LambdaCDM) IsFlat() bool {
	return math.Abs(c.Ok0()) < 1e-12
}

// String renders the canonical representation stored in history records,
// e.g. "LambdaCDM(H0=70.0 km / (Mpc s), Om0=0.3, Ode0=0.7, Tcmb0=0.0 K,
// Neff=3.04, m_nu=None, Ob0=None)". Two cosmologies are the same for a
// project exactly when their strings are equal.
func (c LambdaCDM) String() string {
	var b strings.Builder
	b.WriteString("LambdaCDM(H0=")
	b.WriteString(formatFloat(c.H0))
	b.WriteString(" km / (Mpc s), Om0=")
	b.WriteString(formatFloat(c.Om0))
	b.WriteString(", Ode0=")
	b.WriteString(formatFloat(c.Ode0))
	b.WriteString(", Tcmb0=")
	b.WriteString(formatFloat(c.Tcmb0))
	b.WriteString(" K, Neff=")
	b.WriteString(formatFloat(c.Neff))
	b.WriteString(", m_nu=None, Ob0=None)")
	return b.String()
}

// formatFloat prints the shortest round-trip form of v, keeping a trailing
// ".0" on integral values and switching to exponent notation outside
// [1e-4, 1e16).
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
