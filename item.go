package sierramarc

import (
	"fmt"
	"strings"
)

// Item field tags.
const (
	ItemTag         = "949"
	ItemFallbackTag = "960"
	ExternalNoTag   = "037"
)

// Subfield codes that may appear at most once in an item field.
var itemNonRepeatable = []string{"a", "c", "g", "h", "i", "l", "p", "q", "r", "s", "t", "u", "y"}

// Item is a read-only view of a Sierra item exported in a holdings field.
type Item struct {
	field *DataField
}

// NewItem validates field and returns an Item.
func NewItem(field *DataField) (Item, error) {
	if field == nil {
		return Item{}, fmt.Errorf("%w: nil item field", ErrFieldInvalid)
	}
	for _, code := range itemNonRepeatable {
		if n := len(field.Values(code)); n > 1 {
			return Item{}, fmt.Errorf("%w: %s$%s occurs %d times", ErrNonRepeatableSubfield, field.Tag, code, n)
		}
	}
	return Item{field: field}, nil
}

// isItemField reports whether f holds item data for the library. Both
// libraries export items in 949 fields with the second indicator "1". BPL
// records without an external number (037) may carry items in 960 fields
// which, unlike orders, have no order number.
func isItemField(rec *Record, lib Library, f *DataField) bool {
	switch f.Tag {
	case ItemTag:
		return f.Indicator1 == " " && f.Indicator2 == "1"
	case ItemFallbackTag:
		if lib != BPL || rec.Has(ExternalNoTag) {
			return false
		}
		_, hasOrderNo := f.Get("z")
		return f.Indicator1 == " " && f.Indicator2 == " " && !hasOrderNo
	}
	return false
}

func (i Item) get(code string) (string, bool) {
	v, ok := i.field.Get(code)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Tag returns the tag of the underlying field.
func (i Item) Tag() string { return i.field.Tag }

func (i Item) Barcode() (string, bool)      { return i.get("i") }
func (i Item) CallNo() (string, bool)       { return i.get("a") }
func (i Item) Copies() (string, bool)       { return i.get("g") }
func (i Item) Initials() (string, bool)     { return i.get("v") }
func (i Item) InternalNote() (string, bool) { return i.get("n") }
func (i Item) Agency() (string, bool)       { return i.get("h") }
func (i Item) Code1() (string, bool)        { return i.get("q") }
func (i Item) Code2() (string, bool)        { return i.get("r") }
func (i Item) ItemMessage() (string, bool)  { return i.get("u") }
func (i Item) Status() (string, bool)       { return i.get("s") }
func (i Item) Type() (string, bool)         { return i.get("t") }
func (i Item) Location() (string, bool)     { return i.get("l") }
func (i Item) Message() (string, bool)      { return i.get("m") }
func (i Item) OpacMessage() (string, bool)  { return i.get("o") }
func (i Item) Price() (string, bool)        { return i.get("p") }
func (i Item) Volume() (string, bool)       { return i.get("c") }

// ItemID returns the Sierra item record number without the leading period,
// e.g. "i123456789".
func (i Item) ItemID() (string, bool) {
	v, ok := i.get("y")
	if !ok || len(v) < 2 {
		return "", false
	}
	return strings.TrimPrefix(v, "."), true
}

// ItemIDNormalized returns the item record number without prefix and check
// digit.
func (i Item) ItemIDNormalized() (int, bool) {
	v, ok := i.get("y")
	if !ok {
		return 0, false
	}
	if !strings.HasPrefix(v, ".") {
		v = "." + v
	}
	return NormalizeSierraNumber(v)
}
