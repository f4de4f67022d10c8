package units

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// ErrUnitConversion is returned when a quantity cannot be expressed in the
// requested unit, either because a unit is unknown or it is not a length.
var ErrUnitConversion = errors.New("unit conversion error")

// Unit is a length unit symbol such as "kpc".
type Unit string

const (
	Metre      Unit = "m"
	Kilometre  Unit = "km"
	AU         Unit = "au"
	LightYear  Unit = "lyr"
	Parsec     Unit = "pc"
	Kiloparsec Unit = "kpc"
	Megaparsec Unit = "Mpc"
	Gigaparsec Unit = "Gpc"
)

const metresPerParsec = 3.0856775814913673e16

// parsecs holds each unit's size in parsecs. Parsec multiples are exact
// powers of ten so conversions inside that family do not pick up rounding.
var parsecs = map[Unit]float64{
	Metre:      1 / metresPerParsec,
	Kilometre:  1e3 / metresPerParsec,
	AU:         1.495978707e11 / metresPerParsec,
	LightYear:  9.4607304725808e15 / metresPerParsec,
	Parsec:     1,
	Kiloparsec: 1e3,
	Megaparsec: 1e6,
	Gigaparsec: 1e9,
}

// aliases accepts the spellings people type in config files.
var aliases = map[string]Unit{
	"m":          Metre,
	"km":         Kilometre,
	"au":         AU,
	"AU":         AU,
	"lyr":        LightYear,
	"ly":         LightYear,
	"pc":         Parsec,
	"kpc":        Kiloparsec,
	"Mpc":        Megaparsec,
	"mpc":        Megaparsec,
	"Gpc":        Gigaparsec,
	"gpc":        Gigaparsec,
	"parsec":     Parsec,
	"kiloparsec": Kiloparsec,
	"megaparsec": Megaparsec,
}

// ParseUnit resolves a unit symbol.
func ParseUnit(s string) (Unit, error) {
	if u, ok := aliases[strings.TrimSpace(s)]; ok {
		return u, nil
	}
	return "", oops.Wrapf(ErrUnitConversion, "%q is not a known length unit", s)
}

// Quantity is a numeric value paired with a length unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// New builds a Quantity, validating the unit symbol.
func New(value float64, unit string) (Quantity, error) {
	u, err := ParseUnit(unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: value, Unit: u}, nil
}

// Parse reads quantities written as "<value> <unit>", e.g. "2000 kpc".
func Parse(s string) (Quantity, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Quantity{}, oops.Errorf("quantity %q must be written as '<value> <unit>'", s)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Quantity{}, oops.Wrapf(err, "quantity %q has an invalid value", s)
	}
	return New(v, fields[1])
}

// To converts q into the target unit.
func (q Quantity) To(target Unit) (Quantity, error) {
	from, ok := parsecs[q.Unit]
	if !ok {
		return Quantity{}, oops.Wrapf(ErrUnitConversion, "%q is not a known length unit", q.Unit)
	}
	to, ok := parsecs[target]
	if !ok {
		return Quantity{}, oops.Wrapf(ErrUnitConversion, "%q is not a known length unit", target)
	}
	if q.Unit == target {
		return q, nil
	}
	// value*from first: 2 Mpc -> kpc is 2e6/1e3, exact.
	return Quantity{Value: q.Value * from / to, Unit: target}, nil
}

// Kpc returns the value of q in kiloparsecs.
func (q Quantity) Kpc() (float64, error) {
	k, err := q.To(Kiloparsec)
	if err != nil {
		return 0, err
	}
	return k.Value, nil
}

func (q Quantity) String() string {
	return strconv.FormatFloat(q.Value, 'g', -1, 64) + " " + string(q.Unit)
}
