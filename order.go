package sierramarc

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Order field tags.
const (
	OrderFixedTag  = "960"
	OrderDetailTag = "961"
)

// Sort modes accepted by Bib.SortOrders.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// Order is a read-only view of a Sierra order exported in a 960 field and
// an optional 961 field immediately following it. An Order borrows the
// fields it was built from and must not outlive the owning record.
type Order struct {
	fixed  *DataField
	detail *DataField
	oid    int
	locs   []string
}

// NewOrder builds an Order from the order fixed field and the field that
// follows it in the record. following may be nil when the fixed field is
// the last field of the record; it is only used as the order detail field
// when its tag is 961.
func NewOrder(fixed *DataField, following Field) (Order, error) {
	if fixed == nil {
		return Order{}, fmt.Errorf("%w: nil field", ErrMissingOrderNumber)
	}
	raw, ok := fixed.Get("z")
	if !ok || strings.TrimSpace(raw) == "" {
		return Order{}, ErrMissingOrderNumber
	}
	oid, ok := NormalizeOrderNumber(raw)
	if !ok {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidOrderNumber, raw)
	}
	o := Order{fixed: fixed, oid: oid}
	if df, ok := following.(*DataField); ok && df != nil && df.Tag == OrderDetailTag {
		o.detail = df
	}
	for _, v := range fixed.Values("t") {
		if loc := NormalizeLocationCode(v); loc != "" {
			o.locs = append(o.locs, loc)
		}
	}
	return o, nil
}

// OID returns the normalized Sierra order number.
func (o Order) OID() int { return o.oid }

// Locations returns the location codes without quantity annotations.
func (o Order) Locations() []string { return slices.Clone(o.locs) }

// Audiences returns the audience code of every location that has one.
func (o Order) Audiences() []string { return o.fromLocations(AudienceCode) }

// Branches returns the branch code of every location.
func (o Order) Branches() []string { return o.fromLocations(BranchCode) }

// Shelves returns the shelf code of every location that has one.
func (o Order) Shelves() []string { return o.fromLocations(ShelfCode) }

func (o Order) fromLocations(fn func(string) (string, bool)) []string {
	var codes []string
	for _, loc := range o.locs {
		if code, ok := fn(loc); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// Copies returns the number of ordered copies.
func (o Order) Copies() (int, bool) {
	v, ok := o.fixedValue("o")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Created returns the date the order was created.
func (o Order) Created() (time.Time, bool) {
	v, ok := o.fixedValue("q")
	if !ok {
		return time.Time{}, false
	}
	return NormalizeDate(v)
}

// Form returns the single character material format code.
func (o Order) Form() (string, bool) { return o.fixedCode("g", 1) }

// Lang returns the three character language code.
func (o Order) Lang() (string, bool) { return o.fixedCode("w", 3) }

// Status returns the single character order status code.
func (o Order) Status() (string, bool) { return o.fixedCode("m", 1) }

// OrderType returns the single character order type code.
func (o Order) OrderType() (string, bool) { return o.fixedCode("i", 1) }

// Country returns the three character country code.
func (o Order) Country() (string, bool) { return o.fixedCode("x", 3) }

// Vendor returns the vendor code.
func (o Order) Vendor() (string, bool) { return o.fixedValue("v") }

// Funds returns all fund codes of the order.
func (o Order) Funds() []string {
	var funds []string
	for _, v := range o.fixed.Values("u") {
		if v = strings.TrimSpace(v); v != "" {
			funds = append(funds, v)
		}
	}
	return funds
}

// Price returns the estimated price. Sierra prefixes the amount with a
// currency placeholder such as "{{dollar}}".
func (o Order) Price() (float64, bool) {
	v, ok := o.fixedValue("s")
	if !ok {
		return 0, false
	}
	if i := strings.LastIndexByte(v, '}'); i >= 0 {
		v = v[i+1:]
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// VendorNotes returns the raw vendor note (961$h). Callers wanting the
// normalized form should pass it to NormalizeVendorNote.
func (o Order) VendorNotes() (string, bool) {
	if o.detail == nil {
		return "", false
	}
	return o.detail.Get("h")
}

// HasDetail reports whether the order was paired with a 961 field.
func (o Order) HasDetail() bool {
	return o.detail != nil
}

func (o Order) fixedValue(code string) (string, bool) {
	v, ok := o.fixed.Get(code)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// fixedCode returns a coded value of the given width. Sierra exports "-"
// for uncoded values.
func (o Order) fixedCode(code string, width int) (string, bool) {
	v, ok := o.fixedValue(code)
	if !ok || len(v) != width || v == "-" {
		return "", false
	}
	return v, true
}

// SortOrders orders a slice of orders exported oldest first. Ascending
// keeps the export order and descending reverses it.
func SortOrders(orders []Order, mode string) ([]Order, error) {
	sorted := slices.Clone(orders)
	switch mode {
	case SortAscending:
	case SortDescending:
		slices.Reverse(sorted)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortMode, mode)
	}
	return sorted, nil
}
