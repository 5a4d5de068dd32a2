package fields

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared type of a training note.
type Kind string

const (
	KindText     Kind = "Text"
	KindDatetime Kind = "Datetime"
	KindDuration Kind = "Duration"
	KindNumber   Kind = "Number"
	KindFiveStar Kind = "5stars"
	KindTenStar  Kind = "10stars"
)

var kinds = []Kind{KindText, KindDatetime, KindDuration, KindNumber, KindFiveStar, KindTenStar}

func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

func (k Kind) Valid() bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

const DatetimeLayout = "2006-01-02 15:04:05"

const (
	MsgRequired = "This field is required"
	MsgDatetime = "Expected YYYY-MM-DD HH:MM:SS"
	MsgDuration = "Expected MM:SS or HH:MM:SS"
	MsgNumber   = "Must be number"
	MsgInteger  = "Must be integer"
	MsgFiveStar = "Must be integer from 1 to 5"
	MsgTenStar  = "Must be integer from 1 to 10"
)

var (
	datetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	durationRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
	integerRe  = regexp.MustCompile(`^\d+$`)
)

// ValidateNote checks a note value against its kind. An empty value is only
// an error when the note is required. Returns "" when valid.
func ValidateNote(kind Kind, value string, required bool) string {
	if value == "" {
		if required {
			return MsgRequired
		}
		return ""
	}

	switch kind {
	case KindDatetime:
		if !datetimeRe.MatchString(value) {
			return MsgDatetime
		}
		if _, err := time.Parse(DatetimeLayout, value); err != nil {
			return MsgDatetime
		}
	case KindDuration:
		if !durationRe.MatchString(value) {
			return MsgDuration
		}
	case KindNumber:
		if !isFinite(value) {
			return MsgNumber
		}
	case KindFiveStar:
		if !intInRange(value, 1, 5) {
			return MsgFiveStar
		}
	case KindTenStar:
		if !intInRange(value, 1, 10) {
			return MsgTenStar
		}
	}
	return ""
}

// ValidateValue checks an exercise field value against its primitive type.
// Empty values are valid: they are left out of the submitted set.
func ValidateValue(p Primitive, value string) string {
	if value == "" {
		return ""
	}

	switch p {
	case Int:
		if !integerRe.MatchString(value) {
			return MsgInteger
		}
	case Float:
		if !isFinite(value) {
			return MsgNumber
		}
	case Duration:
		if !durationRe.MatchString(value) {
			return MsgDuration
		}
	}
	return ""
}

// ValidateField resolves the field spec and validates the value against it.
func ValidateField(n Name, value string) string {
	spec, ok := Lookup(n)
	if !ok {
		return ""
	}
	return ValidateValue(spec.Type, value)
}

func isFinite(value string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false
	}
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func intInRange(value string, min, max int) bool {
	if !integerRe.MatchString(value) {
		return false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return n >= min && n <= max
}
