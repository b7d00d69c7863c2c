package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var placeholderKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

const maxPlaceholderValueLength = 500

// PlaceholderValueType tags the PlaceholderValue variant.
type PlaceholderValueType string

const (
	PlaceholderValueTypeString              PlaceholderValueType = "STRING"
	PlaceholderValueTypeSpreadsheetReference PlaceholderValueType = "SPREADSHEET_REFERENCE"
)

// PlaceholderValue is a tagged variant over a literal string or a
// spreadsheet column reference (spec.md §3). Only the field matching Type
// is meaningful.
type PlaceholderValue struct {
	Type      PlaceholderValueType
	String    string
	Reference SpreadsheetReference
}

// placeholderValueJSON mirrors the §6 serialization format:
//
//	{"type": "STRING", "value": "..."}
//	{"type": "SPREADSHEET_REFERENCE", "value": {"column": "A"}}
type placeholderValueJSON struct {
	Type  PlaceholderValueType `json:"type"`
	Value json.RawMessage      `json:"value"`
}

type referenceValueJSON struct {
	Column string `json:"column,omitempty"`
	Row    string `json:"row,omitempty"`
	Cell   string `json:"cell,omitempty"`
}

// MarshalJSON implements the §6 placeholder serialization format.
func (v PlaceholderValue) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case PlaceholderValueTypeString:
		value, err := json.Marshal(v.String)
		if err != nil {
			return nil, err
		}
		return json.Marshal(placeholderValueJSON{Type: v.Type, Value: value})
	case PlaceholderValueTypeSpreadsheetReference:
		ref := referenceValueJSON{}
		switch v.Reference.Kind() {
		case ReferenceKindColumn:
			col, _ := v.Reference.Column()
			ref.Column = col
		case ReferenceKindRow:
			row, _ := v.Reference.Row()
			ref.Row = itoa(row)
		case ReferenceKindCell:
			a1, err := v.Reference.A1()
			if err != nil {
				return nil, err
			}
			ref.Cell = strings.SplitN(a1, ":", 2)[0]
		default:
			return nil, NewValidationError("placeholder column references must be Column, Row, or Cell, got %s", v.Reference.Kind())
		}
		value, err := json.Marshal(ref)
		if err != nil {
			return nil, err
		}
		return json.Marshal(placeholderValueJSON{Type: v.Type, Value: value})
	default:
		return nil, NewValidationError("unknown placeholder value type: %s", v.Type)
	}
}

// UnmarshalJSON decodes the §6 placeholder serialization format. It sniffs
// the "type" discriminator with gjson before committing to the strict
// decode, so a malformed type fails fast with a domain ValidationError
// instead of a generic json error.
func (v *PlaceholderValue) UnmarshalJSON(data []byte) error {
	kind := gjson.GetBytes(data, "type").String()
	switch PlaceholderValueType(kind) {
	case PlaceholderValueTypeString, PlaceholderValueTypeSpreadsheetReference:
	default:
		return NewValidationError("unknown placeholder value type: %q", kind)
	}

	var raw placeholderValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewValidationError("malformed placeholder value: %v", err)
	}

	switch raw.Type {
	case PlaceholderValueTypeString:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return NewValidationError("malformed string placeholder value: %v", err)
		}
		*v = PlaceholderValue{Type: PlaceholderValueTypeString, String: s}
		return nil
	case PlaceholderValueTypeSpreadsheetReference:
		var ref referenceValueJSON
		if err := json.Unmarshal(raw.Value, &ref); err != nil {
			return NewValidationError("malformed reference placeholder value: %v", err)
		}
		var (
			sref SpreadsheetReference
			err  error
		)
		switch {
		case ref.Column != "":
			sref, err = NewColumnReference(ref.Column)
		case ref.Row != "":
			n, convErr := atoi(ref.Row)
			if convErr != nil {
				return NewValidationError("malformed reference placeholder row: %q", ref.Row)
			}
			sref, err = NewRowReference(n)
		case ref.Cell != "":
			sref, err = ParseCellReference(ref.Cell)
		default:
			return NewValidationError("reference placeholder value must set exactly one of column/row/cell")
		}
		if err != nil {
			return err
		}
		*v = PlaceholderValue{Type: PlaceholderValueTypeSpreadsheetReference, Reference: sref}
		return nil
	}
	return NewValidationError("unknown placeholder value type: %q", raw.Type)
}

// PlaceholderStore is a named map of placeholder keys to either literal
// strings or column references, bound to an immutable delimiter pair
// (spec.md §4.2). The zero value is not usable; construct with NewPlaceholderStore.
type PlaceholderStore struct {
	open   string
	close  string
	values map[string]PlaceholderValue
	order  []string
}

// NewPlaceholderStore creates an empty store with the given delimiter pair.
// The default pair is "{", "}". The two delimiters must differ.
func NewPlaceholderStore(open, close string) (*PlaceholderStore, error) {
	if open == "" || close == "" {
		return nil, NewValidationError("placeholder delimiters must be non-empty")
	}
	if open == close {
		return nil, NewValidationError("placeholder delimiters must differ: got %q and %q", open, close)
	}
	return &PlaceholderStore{
		open:   open,
		close:  close,
		values: make(map[string]PlaceholderValue),
	}, nil
}

func validatePlaceholderKey(key string) error {
	if !placeholderKeyPattern.MatchString(key) {
		return NewValidationError("invalid placeholder key: %q", key)
	}
	return nil
}

func validatePlaceholderStringValue(value string) error {
	if value == "" {
		return NewValidationError("placeholder string value must not be empty")
	}
	if len(value) > maxPlaceholderValueLength {
		return NewValidationError("placeholder string value exceeds %d characters", maxPlaceholderValueLength)
	}
	return nil
}

// AddString adds a literal-string placeholder. Fails if the key already exists.
func (s *PlaceholderStore) AddString(key, value string) error {
	if err := validatePlaceholderKey(key); err != nil {
		return err
	}
	if err := validatePlaceholderStringValue(value); err != nil {
		return err
	}
	if _, exists := s.values[key]; exists {
		return NewValidationError("duplicate placeholder key: %q", key)
	}
	s.values[key] = PlaceholderValue{Type: PlaceholderValueTypeString, String: value}
	s.order = append(s.order, key)
	return nil
}

// AddColumnReference adds a column-reference placeholder. Fails if the key already exists.
func (s *PlaceholderStore) AddColumnReference(key string, ref SpreadsheetReference) error {
	if err := validatePlaceholderKey(key); err != nil {
		return err
	}
	if _, exists := s.values[key]; exists {
		return NewValidationError("duplicate placeholder key: %q", key)
	}
	s.values[key] = PlaceholderValue{Type: PlaceholderValueTypeSpreadsheetReference, Reference: ref}
	s.order = append(s.order, key)
	return nil
}

// Update replaces the value bound to an existing key. Fails if the key is unknown.
func (s *PlaceholderStore) Update(key string, value PlaceholderValue) error {
	if _, exists := s.values[key]; !exists {
		return &ErrNotFound{Entity: "placeholder", ID: key}
	}
	s.values[key] = value
	return nil
}

// Remove deletes a key from the store. Fails if the key is unknown.
func (s *PlaceholderStore) Remove(key string) error {
	if _, exists := s.values[key]; !exists {
		return &ErrNotFound{Entity: "placeholder", ID: key}
	}
	delete(s.values, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the value bound to key.
func (s *PlaceholderStore) Get(key string) (PlaceholderValue, error) {
	v, exists := s.values[key]
	if !exists {
		return PlaceholderValue{}, &ErrNotFound{Entity: "placeholder", ID: key}
	}
	return v, nil
}

// Keys lists the store's keys in insertion order.
func (s *PlaceholderStore) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Delimiters returns the store's immutable open/close delimiter pair.
func (s *PlaceholderStore) Delimiters() (string, string) { return s.open, s.close }

// ColumnReferenceKeys returns the keys whose value is a spreadsheet reference.
func (s *PlaceholderStore) ColumnReferenceKeys() []string {
	var keys []string
	for _, k := range s.order {
		if s.values[k].Type == PlaceholderValueTypeSpreadsheetReference {
			keys = append(keys, k)
		}
	}
	return keys
}

// delimitedTokenPattern finds the shortest non-greedy delimited token built
// from the store's open/close delimiters, e.g. "{key}".
func (s *PlaceholderStore) delimitedTokenPattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(s.open) + `(.*?)` + regexp.QuoteMeta(s.close))
}

// ReplaceInString scans input for delimited tokens and substitutes each by
// the stored value's textual form (the literal string, or the raw column
// letter for a column reference). An unknown key fails the entire
// operation (spec.md §4.2).
func (s *PlaceholderStore) ReplaceInString(input string) (string, error) {
	pattern := s.delimitedTokenPattern()
	var outerErr error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		if outerErr != nil {
			return match
		}
		key := strings.TrimSuffix(strings.TrimPrefix(match, s.open), s.close)
		value, exists := s.values[key]
		if !exists {
			outerErr = &ErrNotFound{Entity: "placeholder", ID: key}
			return match
		}
		text, err := textualForm(value)
		if err != nil {
			outerErr = err
			return match
		}
		return text
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

// ReplaceKeysInString replaces only the given key -> resolved-text pairs
// (used by the Placeholder Resolver after a batch cell fetch, §4.4 step 6),
// leaving any token whose key is absent from the map untouched for callers
// that intentionally resolve in phases. Unlike ReplaceInString, this never
// fails on an unmatched token — the resolver is responsible for ensuring
// every column-reference key has already been fetched.
func (s *PlaceholderStore) ReplaceKeysInString(input string, resolved map[string]string) string {
	pattern := s.delimitedTokenPattern()
	return pattern.ReplaceAllStringFunc(input, func(match string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(match, s.open), s.close)
		if text, ok := resolved[key]; ok {
			return text
		}
		if value, ok := s.values[key]; ok && value.Type == PlaceholderValueTypeString {
			return value.String
		}
		return match
	})
}

// ValidateResolutionComplete fails if output still contains one of the
// store's delimited tokens, meaning the resolver left a placeholder
// unsubstituted (spec.md §4.4 step 6 must fully resolve before dispatch).
func ValidateResolutionComplete(s *PlaceholderStore, output string) error {
	if s.delimitedTokenPattern().MatchString(output) {
		return NewResolutionError("", "template still contains unresolved placeholder tokens after resolution")
	}
	return nil
}

func textualForm(v PlaceholderValue) (string, error) {
	switch v.Type {
	case PlaceholderValueTypeString:
		return v.String, nil
	case PlaceholderValueTypeSpreadsheetReference:
		col, err := v.Reference.Column()
		if err != nil {
			return "", err
		}
		return col, nil
	default:
		return "", NewValidationError("unknown placeholder value type: %s", v.Type)
	}
}

// ValidateDelimiterBalance checks that every opener in input has a matching
// later closer before string end, using a single-symbol stack. Nesting is
// not supported: the store's delimiters must appear as flat, non-nested
// pairs (spec.md §4.2, §6).
func ValidateDelimiterBalance(input, open, close string) error {
	var depth int
	i := 0
	for i < len(input) {
		switch {
		case strings.HasPrefix(input[i:], open):
			if depth > 0 {
				return NewValidationError("nested delimiter at position %d", i)
			}
			depth++
			i += len(open)
		case strings.HasPrefix(input[i:], close):
			if depth == 0 {
				return NewValidationError("unmatched closing delimiter at position %d", i)
			}
			depth--
			i += len(close)
		default:
			i++
		}
	}
	if depth != 0 {
		return NewValidationError("unbalanced delimiters: %d opener(s) never closed", depth)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func atoi(s string) (int, error) { return strconv.Atoi(s) }

// placeholderStoreJSON is the repository-column serialization shape for a
// whole store: delimiters plus an ordered key/value list (order matters for
// deterministic re-resolution, spec.md §7).
type placeholderStoreJSON struct {
	Open   string             `json:"open"`
	Close  string             `json:"close"`
	Order  []string           `json:"order"`
	Values map[string]PlaceholderValue `json:"values"`
}

// MarshalJSON serializes the whole store for repository persistence.
func (s *PlaceholderStore) MarshalJSON() ([]byte, error) {
	return json.Marshal(placeholderStoreJSON{Open: s.open, Close: s.close, Order: s.order, Values: s.values})
}

// UnmarshalJSON reconstructs a store previously serialized by MarshalJSON.
func (s *PlaceholderStore) UnmarshalJSON(data []byte) error {
	var raw placeholderStoreJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewValidationError("malformed placeholder store: %v", err)
	}
	store, err := NewPlaceholderStore(raw.Open, raw.Close)
	if err != nil {
		return err
	}
	store.order = raw.Order
	if store.order == nil {
		store.order = []string{}
	}
	store.values = raw.Values
	if store.values == nil {
		store.values = make(map[string]PlaceholderValue)
	}
	*s = *store
	return nil
}
