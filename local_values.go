package sierramarc

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Digits kept after the decimal point by ShortenDewey.
const (
	DefaultDeweyDigits  = 4
	JuvenileDeweyDigits = 2
)

var (
	deweyPattern      = regexp.MustCompile(`^[0-9]+(\.[0-9]*)?$`)
	deweyNoise        = strings.NewReplacer("/", "", "j", "", "C", "", "[B]", "", "'", "")
	vendorNoteNoise   = strings.NewReplacer("deck", "", "sr", "", "mm", "", "ref", "")
	vendorNoteDropped = map[string]bool{"n": true, "e": true}
)

// NormalizeDate parses Sierra dates. Values of exactly 8 characters are read
// as MM-DD-YY, anything longer as MM-DD-YYYY with any trailing time ignored.
// Two digit years follow time.Parse: 69-99 map to the 1900s and 00-68 to
// the 2000s.
func NormalizeDate(value string) (time.Time, bool) {
	var (
		t   time.Time
		err error
	)
	if len(value) == 8 {
		t, err = time.Parse("01-02-06", value)
	} else {
		t, err = time.Parse("01-02-2006", truncate(value, 10))
	}
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDewey cleans up a Dewey class mark so it can be used in a call
// number. Juvenile and biography markers, slashes and prime marks are
// removed and trailing zeros after the decimal point are dropped. Values
// that are not decimal numbers, such as "[Fic]", are rejected.
func NormalizeDewey(classMark string) (string, bool) {
	classMark = strings.TrimSpace(deweyNoise.Replace(classMark))
	if !deweyPattern.MatchString(classMark) {
		return "", false
	}
	return trimDecimalZeros(classMark), true
}

// ShortenDewey truncates a normalized class mark to at most digits
// characters after the decimal point.
func ShortenDewey(classMark string, digits int) string {
	if digits < 0 {
		digits = 0
	}
	if i := strings.IndexByte(classMark, '.'); i >= 0 && len(classMark) > i+1+digits {
		classMark = classMark[:i+1+digits]
	}
	return trimDecimalZeros(classMark)
}

func trimDecimalZeros(classMark string) string {
	if !strings.Contains(classMark, ".") {
		return classMark
	}
	classMark = strings.TrimRight(classMark, "0")
	return strings.TrimSuffix(classMark, ".")
}

// NormalizeLocationCode removes a quantity annotation such as "(3)" from a
// Sierra location code.
func NormalizeLocationCode(code string) string {
	s := strings.IndexByte(code, '(')
	e := strings.IndexByte(code, ')')
	if s < 0 || e < s {
		return code
	}
	return code[:s] + code[e+1:]
}

// BranchCode returns the first two characters of a normalized location
// code.
func BranchCode(locationCode string) (string, bool) {
	branch := strings.TrimSpace(truncate(locationCode, 2))
	return branch, branch != ""
}

// AudienceCode returns the third character of a normalized location code.
func AudienceCode(locationCode string) (string, bool) {
	return slice(locationCode, 2, 3)
}

// ShelfCode returns the fourth and fifth characters of a normalized
// location code.
func ShelfCode(locationCode string) (string, bool) {
	return slice(locationCode, 3, 5)
}

func slice(s string, from, to int) (string, bool) {
	if len(s) <= from {
		return "", false
	}
	v := strings.TrimSpace(truncate(s, to)[from:])
	return v, v != ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// NormalizeOrderNumber strips the ".o" prefix and the check digit from a
// Sierra order number, e.g. ".o28876714" becomes 2887671.
func NormalizeOrderNumber(orderNumber string) (int, bool) {
	return NormalizeSierraNumber(orderNumber)
}

// NormalizeSierraNumber strips the two character prefix and the trailing
// check digit of a Sierra record number such as ".b225444884".
func NormalizeSierraNumber(number string) (int, bool) {
	number = strings.TrimSpace(number)
	if len(number) < 4 {
		return 0, false
	}
	n, err := strconv.Atoi(number[2 : len(number)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NormalizeVendorNote lower-cases a vendor note (PO per line), removes
// noise tokens and rejoins its parts with commas. BPL separates parts with
// semicolons and NYPL with commas.
func NormalizeVendorNote(note string) (string, bool) {
	note = vendorNoteNoise.Replace(strings.ToLower(note))
	note = strings.ReplaceAll(note, ";", ",")
	var parts []string
	for _, p := range strings.Split(note, ",") {
		p = strings.TrimSpace(p)
		if p == "" || vendorNoteDropped[p] {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ","), true
}
