package ir

import (
	"fmt"
	"strings"
)

// Kind is the primitive classification of a formula type.
type Kind int

const (
	KindUnknown Kind = iota
	KindBlank
	KindBoolean
	KindNumber
	KindString
	KindDate
	KindDateTime
	KindGuid
	KindRecord
	KindTable
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindBlank:    "blank",
	KindBoolean:  "boolean",
	KindNumber:   "number",
	KindString:   "string",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindGuid:     "guid",
	KindRecord:   "record",
	KindTable:    "table",
}

// String returns the lower-case name used in catalogs and dumps.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a catalog type name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == strings.ToLower(name) {
			return k, true
		}
	}
	return KindUnknown, false
}

// IsPrimitive reports whether values of this kind are scalars.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindBoolean, KindNumber, KindString, KindDate, KindDateTime, KindGuid:
		return true
	}
	return false
}

// Type is the type of a node. Record and table types carry ordered fields;
// primitive types carry none.
type Type struct {
	Kind   Kind
	Fields []Field
}

// Field is a named, typed member of a record or table type.
type Field struct {
	Name string
	Type Type
}

// Primitive type values.
var (
	TypeUnknown  = Type{Kind: KindUnknown}
	TypeBlank    = Type{Kind: KindBlank}
	TypeBoolean  = Type{Kind: KindBoolean}
	TypeNumber   = Type{Kind: KindNumber}
	TypeString   = Type{Kind: KindString}
	TypeDate     = Type{Kind: KindDate}
	TypeDateTime = Type{Kind: KindDateTime}
	TypeGuid     = Type{Kind: KindGuid}
)

// TableOf returns a table type with the given fields.
func TableOf(fields ...Field) Type {
	return Type{Kind: KindTable, Fields: fields}
}

// RecordOf returns a record type with the given fields.
func RecordOf(fields ...Field) Type {
	return Type{Kind: KindRecord, Fields: fields}
}

// IsTable reports whether t is a table type.
func (t Type) IsTable() bool { return t.Kind == KindTable }

// IsRecord reports whether t is a record type.
func (t Type) IsRecord() bool { return t.Kind == KindRecord }

// FieldByName returns the field with the given name.
func (t Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns field names in declaration order.
func (t Type) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// ToRecord returns the row type of a table type. Non-table types are
// returned unchanged.
func (t Type) ToRecord() Type {
	if t.Kind != KindTable {
		return t
	}
	return Type{Kind: KindRecord, Fields: t.Fields}
}

// ToTable returns the table type whose rows have type t.
func (t Type) ToTable() Type {
	if t.Kind != KindRecord {
		return t
	}
	return Type{Kind: KindTable, Fields: t.Fields}
}

// String renders the type, e.g. "table{Id:guid,Name:string}".
func (t Type) String() string {
	if t.Kind != KindTable && t.Kind != KindRecord {
		return t.Kind.String()
	}
	var b strings.Builder
	b.WriteString(t.Kind.String())
	b.WriteByte('{')
	for i, f := range t.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
	}
	b.WriteByte('}')
	return b.String()
}
