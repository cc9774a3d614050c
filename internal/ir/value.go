package ir

import (
	"fmt"
	"strconv"
	"time"
)

// Value is a sealed interface representing literal values in the IR.
// Only String, Number, Bool, Blank, Date, DateTime and Guid implement this.
type Value interface {
	irValue() // Sealed - only these types implement it

	// Kind returns the primitive type kind of the value.
	Kind() Kind
}

// Blank represents the formula language's blank (absent) value.
// Using an explicit type ensures every literal satisfies the sealed interface.
type Blank struct{}

func (Blank) irValue() {}

// Kind implements Value.
func (Blank) Kind() Kind { return KindBlank }

// String represents a text value.
type String string

func (String) irValue() {}

// Kind implements Value.
func (String) Kind() Kind { return KindString }

// Number represents a numeric value.
type Number float64

func (Number) irValue() {}

// Kind implements Value.
func (Number) Kind() Kind { return KindNumber }

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Kind implements Value.
func (Bool) Kind() Kind { return KindBoolean }

// Date represents a calendar date. The time-of-day part is always zero UTC.
type Date time.Time

func (Date) irValue() {}

// Kind implements Value.
func (Date) Kind() Kind { return KindDate }

// DateTime represents an instant.
type DateTime time.Time

func (DateTime) irValue() {}

// Kind implements Value.
func (DateTime) Kind() Kind { return KindDateTime }

// Guid represents a globally unique identifier in canonical textual form.
type Guid string

func (Guid) irValue() {}

// Kind implements Value.
func (Guid) Kind() Kind { return KindGuid }

// NewDate creates a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FormatValue renders a value the way diagnostics and dumps display it.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Blank:
		return "Blank()"
	case String:
		return strconv.Quote(string(val))
	case Number:
		return formatNumber(float64(val))
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Date:
		return time.Time(val).Format("2006-01-02")
	case DateTime:
		return time.Time(val).UTC().Format(time.RFC3339Nano)
	case Guid:
		return string(val)
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// ValueToAny converts a value to a plain Go value for canonical JSON and
// SQL parameters. Blank becomes nil.
func ValueToAny(v Value) any {
	switch val := v.(type) {
	case Blank:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Date:
		return time.Time(val).Format("2006-01-02")
	case DateTime:
		return time.Time(val).UTC().Format(time.RFC3339Nano)
	case Guid:
		return string(val)
	default:
		return nil
	}
}

// ParseValue builds a literal value of the given kind from its textual form.
// It is the inverse of FormatValue for dates, date-times and guids.
func ParseValue(kind Kind, text string) (Value, error) {
	switch kind {
	case KindString:
		return String(text), nil
	case KindNumber:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", text, err)
		}
		return Number(f), nil
	case KindBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("parse boolean %q: %w", text, err)
		}
		return Bool(b), nil
	case KindDate:
		t, err := time.Parse("2006-01-02", text)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", text, err)
		}
		return Date(t), nil
	case KindDateTime:
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return nil, fmt.Errorf("parse datetime %q: %w", text, err)
		}
		return DateTime(t.UTC()), nil
	case KindGuid:
		return Guid(text), nil
	case KindBlank:
		return Blank{}, nil
	default:
		return nil, fmt.Errorf("kind %s has no literal form", kind)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
