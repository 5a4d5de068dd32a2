package fields

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownField = errors.New("unknown exercise field")

// Primitive is the value type an exercise field holds.
type Primitive string

const (
	Int      Primitive = "int"
	Float    Primitive = "float"
	Duration Primitive = "duration"
	Text     Primitive = "text"
)

// Name identifies an exercise field. The set of names is closed.
type Name string

const (
	Sets      Name = "sets"
	Reps      Name = "reps"
	Weight    Name = "weight"
	Time      Name = "time"
	Distance  Name = "distance"
	Speed     Name = "speed"
	Rounds    Name = "rounds"
	Rest      Name = "rest"
	RPE       Name = "rpe"
	Attempts  Name = "attempts"
	Successes Name = "successes"
	Notes     Name = "notes"
	Tempo     Name = "tempo"
)

// Spec describes the value type of a field and the units it can be measured in.
type Spec struct {
	Type  Primitive
	Units []string
}

// DefaultUnit returns the first permitted unit, or "" for unitless fields.
func (s Spec) DefaultUnit() string {
	if len(s.Units) == 0 {
		return ""
	}
	return s.Units[0]
}

func (s Spec) AllowsUnit(unit string) bool {
	if unit == "" {
		return true
	}
	return slices.Contains(s.Units, unit)
}

// declaration order matters: it drives which field is offered first
var names = []Name{
	Sets, Reps, Weight, Time, Distance, Speed, Rounds,
	Rest, RPE, Attempts, Successes, Notes, Tempo,
}

var specs = map[Name]Spec{
	Sets:      {Type: Int},
	Reps:      {Type: Int},
	Weight:    {Type: Float, Units: []string{"kg", "lbs"}},
	Time:      {Type: Duration},
	Distance:  {Type: Float, Units: []string{"m", "km", "mi"}},
	Speed:     {Type: Float, Units: []string{"kph", "mph", "mps"}},
	Rounds:    {Type: Int},
	Rest:      {Type: Duration},
	RPE:       {Type: Int},
	Attempts:  {Type: Int},
	Successes: {Type: Int},
	Notes:     {Type: Text},
	Tempo:     {Type: Text},
}

// Names returns all field names in declaration order.
func Names() []Name {
	return slices.Clone(names)
}

// Lookup resolves the spec of a field name.
func Lookup(n Name) (Spec, bool) {
	s, ok := specs[n]
	if !ok {
		return Spec{}, false
	}
	s.Units = slices.Clone(s.Units)
	return s, true
}

// ParseName accepts names case-insensitively, since the backend lists them capitalized.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := specs[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
	return n, nil
}

func (n Name) Valid() bool {
	_, ok := specs[n]
	return ok
}

func (n Name) Spec() Spec {
	s, _ := Lookup(n)
	return s
}

// Index is the position of the name in declaration order, -1 when unknown.
func (n Name) Index() int {
	return slices.Index(names, n)
}

func (n Name) String() string {
	return string(n)
}

// UnmarshalText lower-cases the incoming value and keeps unknown names as-is,
// so templates carrying fields this client does not know still decode.
func (n *Name) UnmarshalText(text []byte) error {
	*n = Name(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}
