package sierramarc

import (
	"fmt"
	"strings"
	"time"
)

// Library identifies the Sierra system a record was exported from.
type Library string

// Recognized libraries.
const (
	BPL  Library = "bpl"
	NYPL Library = "nypl"
)

// ParseLibrary returns the Library for a case-insensitive code.
func ParseLibrary(code string) (Library, error) {
	lib := Library(strings.ToLower(strings.TrimSpace(code)))
	if err := lib.validate(); err != nil {
		return "", err
	}
	return lib, nil
}

func (l Library) validate() error {
	if l != BPL && l != NYPL {
		return fmt.Errorf("%w: %q", ErrInvalidLibrary, string(l))
	}
	return nil
}

func (l Library) String() string { return string(l) }

var (
	mainEntryTags    = []string{"100", "110", "111", "245"}
	suppressionCodes = map[string]bool{"c": true, "e": true, "n": true, "o": true, "q": true, "v": true}
)

// Bib is a MARC record exported from one of the two Sierra systems. It
// embeds the Record so all record level lookups are available.
type Bib struct {
	*Record
	library      Library
	vocabularies map[string]bool
}

// BibOption configures a Bib.
type BibOption func(*Bib)

// WithSubjectVocabularies replaces the subject source codes (the $2 of
// headings with second indicator 7) that are considered supported.
func WithSubjectVocabularies(codes ...string) BibOption {
	return func(b *Bib) {
		b.vocabularies = make(map[string]bool, len(codes))
		for _, c := range codes {
			b.vocabularies[strings.ToLower(strings.TrimSpace(c))] = true
		}
	}
}

// NewBib wraps rec for library lib.
func NewBib(rec *Record, lib Library, opts ...BibOption) (*Bib, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	if err := lib.validate(); err != nil {
		return nil, err
	}
	b := &Bib{Record: rec, library: lib}
	WithSubjectVocabularies(DefaultSubjectVocabularies...)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ParseBib parses a single ISO 2709 framed record into a Bib.
func ParseBib(data []byte, lib Library, opts ...BibOption) (*Bib, error) {
	if err := lib.validate(); err != nil {
		return nil, err
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewBib(rec, lib, opts...)
}

// Library returns the library the record belongs to.
func (b *Bib) Library() Library {
	return b.library
}

func (b *Bib) firstSubfield(tag, code string) (string, bool) {
	for _, df := range b.DataField(tag) {
		if v, ok := df.Get(code); ok {
			v = strings.TrimSpace(v)
			return v, v != ""
		}
	}
	return "", false
}

func (b *Bib) controlValue(tag string) (string, bool) {
	cfs := b.ControlField(tag)
	if len(cfs) == 0 {
		return "", false
	}
	return cfs[0].Value, true
}

func (b *Bib) controlPos(tag string, pos int) (string, bool) {
	v, ok := b.controlValue(tag)
	if !ok || len(v) <= pos {
		return "", false
	}
	return v[pos : pos+1], true
}

// SierraBibID returns the Sierra bib number (907$a) without the leading
// period, e.g. "b225444884".
func (b *Bib) SierraBibID() (string, bool) {
	v, ok := b.firstSubfield("907", "a")
	if !ok || len(v) < 2 {
		return "", false
	}
	return strings.TrimPrefix(v, "."), true
}

// SierraBibIDNormalized returns the Sierra bib number without prefix and
// check digit.
func (b *Bib) SierraBibIDNormalized() (int, bool) {
	v, ok := b.firstSubfield("907", "a")
	if !ok {
		return 0, false
	}
	if !strings.HasPrefix(v, ".") {
		v = "." + v
	}
	return NormalizeSierraNumber(v)
}

// SierraBibFormat returns the Sierra material format code (998$d).
func (b *Bib) SierraBibFormat() (string, bool) {
	return b.firstSubfield("998", "d")
}

// CreatedDate returns the date the Sierra bib was created (907$c).
func (b *Bib) CreatedDate() (time.Time, bool) {
	v, ok := b.firstSubfield("907", "c")
	if !ok {
		return time.Time{}, false
	}
	return NormalizeDate(v)
}

// CatalogingDate returns the Sierra cataloging date (907$b).
func (b *Bib) CatalogingDate() (time.Time, bool) {
	v, ok := b.firstSubfield("907", "b")
	if !ok {
		return time.Time{}, false
	}
	return NormalizeDate(v)
}

// ControlNumber returns the trimmed 001.
func (b *Bib) ControlNumber() (string, bool) {
	v := b.ControlNum()
	return v, v != ""
}

// BranchCallNo returns the branch call number: 099 for BPL and 091 for
// NYPL.
func (b *Bib) BranchCallNo() (string, bool) {
	tag := "091"
	if b.library == BPL {
		tag = "099"
	}
	dfs := b.DataField(tag)
	if len(dfs) == 0 {
		return "", false
	}
	v := dfs[0].Value()
	return v, v != ""
}

// ResearchCallNo returns the NYPL research call number (852$h).
func (b *Bib) ResearchCallNo() (string, bool) {
	if b.library != NYPL {
		return "", false
	}
	return b.firstSubfield("852", "h")
}

// RecordType returns leader position 06.
func (b *Bib) RecordType() string {
	return string(blank(b.Leader.Type))
}

// Audience returns the target audience code (008/22) of language,
// music, visual and mixed materials.
func (b *Bib) Audience() (string, bool) {
	if !strings.ContainsRune("acdgijkmt", rune(b.Leader.Type)) ||
		!strings.ContainsRune("am", rune(b.Leader.BibLevel)) {
		return "", false
	}
	return b.controlPos("008", 22)
}

// FormOfItem returns the form of item code. It is coded in 008/23 for
// most formats and in 008/29 for maps and visual materials.
func (b *Bib) FormOfItem() (string, bool) {
	switch t := rune(b.Leader.Type); {
	case t != 0 && strings.ContainsRune("acdijmopt", t):
		return b.controlPos("008", 23)
	case t != 0 && strings.ContainsRune("efgk", t):
		return b.controlPos("008", 29)
	}
	return "", false
}

// PhysicalDescription returns the value of the first 300 field.
func (b *Bib) PhysicalDescription() (string, bool) {
	dfs := b.DataField("300")
	if len(dfs) == 0 {
		return "", false
	}
	return dfs[0].Value(), true
}

// MainEntry returns the first of 100, 110, 111 and 245. A record without
// any of them is incomplete and ErrMissingMainEntry is returned.
func (b *Bib) MainEntry() (*DataField, error) {
	for _, tag := range mainEntryTags {
		if dfs := b.DataField(tag); len(dfs) > 0 {
			return dfs[0], nil
		}
	}
	return nil, ErrMissingMainEntry
}

// Dewey returns the normalized Dewey classification from the 082 field
// assigned by LC (indicators "00") or, failing that, by another agency
// (indicators "04").
func (b *Bib) Dewey() (string, bool) {
	for _, inds := range [][2]string{{"0", "0"}, {"0", "4"}} {
		for _, df := range b.DataField("082") {
			if df.Indicator1 != inds[0] || df.Indicator2 != inds[1] {
				continue
			}
			v, ok := df.Get("a")
			if !ok {
				return "", false
			}
			return NormalizeDewey(v)
		}
	}
	return "", false
}

// DeweyShortened returns the Dewey classification shortened for use in
// a branch call number. NYPL juvenile materials keep two digits after the
// period, everything else four.
func (b *Bib) DeweyShortened() (string, bool) {
	classMark, ok := b.Dewey()
	if !ok {
		return "", false
	}
	digits := DefaultDeweyDigits
	if b.library == NYPL && b.isJuvenileOrder() {
		digits = JuvenileDeweyDigits
	}
	return ShortenDewey(classMark, digits), true
}

func (b *Bib) isJuvenileOrder() bool {
	orders, err := b.Orders()
	if err != nil {
		return false
	}
	for _, o := range orders {
		for _, a := range o.Audiences() {
			if a == "j" {
				return true
			}
		}
	}
	return false
}

// Languages returns the language of the material (008/35-37) followed by
// every 041$a.
func (b *Bib) Languages() []string {
	var langs []string
	if v, ok := b.controlValue("008"); ok && len(v) >= 38 {
		langs = append(langs, v[35:38])
	}
	for _, df := range b.DataField("041") {
		langs = append(langs, df.Values("a")...)
	}
	return langs
}

// LCCN returns the Library of Congress control number (010$a).
func (b *Bib) LCCN() (string, bool) {
	return b.firstSubfield("010", "a")
}

// UPCNumber returns the universal product code (024 first indicator 1).
func (b *Bib) UPCNumber() (string, bool) {
	for _, df := range b.DataField("024") {
		if df.Indicator1 != "1" {
			continue
		}
		if v, ok := df.Get("a"); ok {
			v = strings.TrimSpace(v)
			return v, v != ""
		}
	}
	return "", false
}

// OverdriveNumber returns the OverDrive reserve id (037$a) when the source
// of acquisition is OverDrive.
func (b *Bib) OverdriveNumber() (string, bool) {
	for _, df := range b.DataField("037") {
		if src, _ := df.Get("b"); src != "OverDrive, Inc." {
			continue
		}
		if v, ok := df.Get("a"); ok {
			v = strings.TrimSpace(v)
			return v, v != ""
		}
	}
	return "", false
}

// OclcNumbers collects OCLC numbers keyed by the tag they were found in:
// the 001 when the 003 is "OCoLC", the first 035$a with the "(OCoLC)"
// prefix and, for NYPL, the 991$y. Values are returned without prefix.
func (b *Bib) OclcNumbers() map[string]string {
	nos := make(map[string]string)
	if src, _ := b.controlValue("003"); strings.TrimSpace(src) == "OCoLC" {
		if n, err := NewOclcNumber(b.ControlNum()); err == nil {
			nos["001"] = n.WithoutPrefix()
		}
	}
	for _, df := range b.DataField("035") {
		v, ok := df.Get("a")
		if !ok || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "(ocolc)") {
			continue
		}
		if n, err := NewOclcNumber(v); err == nil {
			nos["035"] = n.WithoutPrefix()
			break
		}
	}
	if b.library == NYPL {
		if v, ok := b.firstSubfield("991", "y"); ok {
			if n, err := NewOclcNumber(v); err == nil {
				nos["991"] = n.WithoutPrefix()
			}
		}
	}
	return nos
}

// Suppressed reports whether the bib is suppressed from public display
// (998$e).
func (b *Bib) Suppressed() bool {
	v, ok := b.firstSubfield("998", "e")
	return ok && suppressionCodes[v]
}

// Collection returns the NYPL collection of the record based on 910$a: "BL"
// for branch, "RL" for research or "mixed" when both are present.
func (b *Bib) Collection() (string, bool) {
	if b.library != NYPL {
		return "", false
	}
	var codes []string
	for _, df := range b.DataField("910") {
		codes = append(codes, df.Values("a")...)
	}
	switch {
	case len(codes) == 1 && (codes[0] == "BL" || codes[0] == "RL"):
		return codes[0], true
	case len(codes) == 2 && codes[0] != codes[1] &&
		(codes[0] == "BL" || codes[0] == "RL") && (codes[1] == "BL" || codes[1] == "RL"):
		return "mixed", true
	}
	return "", false
}

// Orders extracts the orders of the record in the order they were
// exported, oldest first. Each 960 field is paired with the field directly
// after it when that field is a 961. 960 fields holding BPL items are
// skipped.
func (b *Bib) Orders() ([]Order, error) {
	var orders []Order
	for i, f := range b.All() {
		df, ok := f.(*DataField)
		if !ok || df.Tag != OrderFixedTag || isItemField(b.Record, b.library, df) {
			continue
		}
		following, _ := b.FieldAfter(i)
		o, err := NewOrder(df, following)
		if err != nil {
			return nil, fmt.Errorf("order at field %d: %w", i, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// SortOrders returns the orders sorted by mode, SortAscending or
// SortDescending.
func (b *Bib) SortOrders(mode string) ([]Order, error) {
	orders, err := b.Orders()
	if err != nil {
		return nil, err
	}
	return SortOrders(orders, mode)
}

// Items returns the items attached to the record.
func (b *Bib) Items() ([]Item, error) {
	var items []Item
	for _, f := range b.GetFields(ItemTag, ItemFallbackTag) {
		df, ok := f.(*DataField)
		if !ok || !isItemField(b.Record, b.library, df) {
			continue
		}
		it, err := NewItem(df)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
