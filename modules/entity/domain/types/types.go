// Package types holds the six persisted relations of the universal data
// model: organizations, entities, dynamic fields, relationships,
// transactions and transaction lines. Every record belongs to exactly one
// organization; the organization id roots all scoping.
package types

import (
	"encoding/json"

	"github.com/hexacore/hexacore/pkg/smartcode"
)

type Organization struct {
	ID     string
	Name   string
	Status string
}

// Entity is a typed business object. OrganizationID is immutable after
// creation; SmartCode has passed grammar validation before the struct is
// ever constructed.
type Entity struct {
	ID             string
	OrganizationID string
	Type           string
	Name           string
	Code           string
	SmartCode      smartcode.Code
	Status         string
}

type ValueType string

const (
	ValueText    ValueType = "text"
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueJSON    ValueType = "json"
)

// DynamicField attaches one typed attribute to an entity outside any fixed
// schema. Exactly one of the typed value columns is populated, matching
// ValueType; OrganizationID always equals the owning entity's.
type DynamicField struct {
	EntityID       string
	OrganizationID string
	Name           string
	ValueType      ValueType
	TextValue      *string
	NumberValue    *float64
	BooleanValue   *bool
	JSONValue      json.RawMessage
	SmartCode      smartcode.Code
}

// Value returns the populated typed value.
func (f DynamicField) Value() any {
	switch f.ValueType {
	case ValueText:
		if f.TextValue != nil {
			return *f.TextValue
		}
	case ValueNumber:
		if f.NumberValue != nil {
			return *f.NumberValue
		}
	case ValueBoolean:
		if f.BooleanValue != nil {
			return *f.BooleanValue
		}
	case ValueJSON:
		return f.JSONValue
	}
	return nil
}

// FieldValue is the tagged input for a dynamic field write. Construct via
// Text/Number/Boolean/JSON; the zero value is invalid.
type FieldValue struct {
	valueType ValueType
	text      string
	number    float64
	boolean   bool
	raw       json.RawMessage
}

func Text(v string) FieldValue    { return FieldValue{valueType: ValueText, text: v} }
func Number(v float64) FieldValue { return FieldValue{valueType: ValueNumber, number: v} }
func Boolean(v bool) FieldValue   { return FieldValue{valueType: ValueBoolean, boolean: v} }
func JSON(raw json.RawMessage) FieldValue {
	return FieldValue{valueType: ValueJSON, raw: raw}
}

func (v FieldValue) Type() ValueType { return v.valueType }

func (v FieldValue) IsZero() bool { return v.valueType == "" }

// Apply populates exactly one typed column on the field row.
func (v FieldValue) Apply(f *DynamicField) {
	f.ValueType = v.valueType
	f.TextValue, f.NumberValue, f.BooleanValue, f.JSONValue = nil, nil, nil, nil
	switch v.valueType {
	case ValueText:
		s := v.text
		f.TextValue = &s
	case ValueNumber:
		n := v.number
		f.NumberValue = &n
	case ValueBoolean:
		b := v.boolean
		f.BooleanValue = &b
	case ValueJSON:
		f.JSONValue = v.raw
	}
}

// Relationship links two entities of the same organization.
type Relationship struct {
	ID             string
	OrganizationID string
	FromEntityID   string
	ToEntityID     string
	Type           string
	SmartCode      smartcode.Code
}

// Transaction is a business event; its lines inherit the transaction's
// organization and carry no independently settable organization id.
type Transaction struct {
	ID             string
	OrganizationID string
	Type           string
	Code           string
	SmartCode      smartcode.Code
	Total          float64
	Lines          []TransactionLine
}

type TransactionLine struct {
	TransactionID string
	LineNumber    int
	EntityID      string
	Quantity      float64
	Amount        float64
	SmartCode     smartcode.Code
}

// ListFilter narrows an entity listing. Any organization id a caller
// smuggles into a filter is overridden by the store, never merged.
type ListFilter struct {
	OrganizationID string
	Status         string
	Code           string
	Limit          int
	Offset         int
}

// DeleteReport is the aggregate count returned by an entity deletion.
// Relationships are counted, not deleted; they stay as dangling
// references for the caller to handle.
type DeleteReport struct {
	Entity        int `json:"entity"`
	DynamicFields int `json:"dynamic_fields"`
	Relationships int `json:"relationships"`
}
