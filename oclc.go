package sierramarc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var oclcPattern = regexp.MustCompile(`(?i)^(?:ocm([0-9]{8})|ocn([0-9]{9})|on([0-9]{10,})|\(ocolc\)([0-9]+)|([0-9]+))$`)

// OclcNumber is a validated OCLC control number. OCLC numbers appear with
// different prefixes depending on their length and the era they were
// assigned in: "ocm" for up to 8 digits, "ocn" for 9 digits and "on" for 10
// or more digits. The "(OCoLC)" agency prefix is used in 035 fields.
type OclcNumber struct {
	value     string
	digits    string
	hasPrefix bool
}

// NewOclcNumber validates value and returns an OclcNumber.
func NewOclcNumber(value string) (OclcNumber, error) {
	m := oclcPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return OclcNumber{}, fmt.Errorf("%w: %q", ErrInvalidOclcNumber, value)
	}
	var raw string
	for _, g := range m[1:] {
		if g != "" {
			raw = g
			break
		}
	}
	digits := strings.TrimLeft(raw, "0")
	if digits == "" {
		return OclcNumber{}, fmt.Errorf("%w: %q", ErrInvalidOclcNumber, value)
	}
	return OclcNumber{value: value, digits: digits, hasPrefix: m[5] == ""}, nil
}

// OclcNumberFromInt returns an OclcNumber for a positive integer.
func OclcNumberFromInt(n int) (OclcNumber, error) {
	if n <= 0 {
		return OclcNumber{}, fmt.Errorf("%w: %d", ErrInvalidOclcNumber, n)
	}
	return NewOclcNumber(strconv.Itoa(n))
}

// IsValidOclcNumber reports whether value can be used to construct an
// OclcNumber.
func IsValidOclcNumber(value string) bool {
	_, err := NewOclcNumber(value)
	return err == nil
}

// Value returns the number as it was given.
func (o OclcNumber) Value() string {
	return o.value
}

// HasPrefix reports whether the original value carried a known prefix.
func (o OclcNumber) HasPrefix() bool {
	return o.hasPrefix
}

// WithPrefix returns the number with the prefix matching its length.
func (o OclcNumber) WithPrefix() string {
	switch n := len(o.digits); {
	case n <= 8:
		return "ocm" + strings.Repeat("0", 8-n) + o.digits
	case n == 9:
		return "ocn" + o.digits
	default:
		return "on" + o.digits
	}
}

// WithoutPrefix returns the bare number without leading zeros.
func (o OclcNumber) WithoutPrefix() string {
	return o.digits
}

func (o OclcNumber) String() string {
	return o.WithoutPrefix()
}
