/*

sierramarc is a library for parsing MARC 21 formatted data exported from the
Sierra ILS of Brooklyn Public Library and The New York Public Library. On
top of the raw record structure it provides library specific accessors for
call numbers, orders, items, classification and identifiers.

*/
package sierramarc

import (
	"bytes"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

const (
	rt = 0x1d // End of record
	ft = 0x1e // End of field
	st = 0x1f // End of subfield

	leaderLen   = 24
	dirEntryLen = 12
)

// Record is a struct representing a MARC record. It has a Fields slice
// which contains both ControlFields and DataFields in the order they were
// encountered in the source data.
type Record struct {
	Data   []byte
	Fields []Field
	Leader Leader
}

// Leader contains the bytes of the record leader that vary from record to
// record. Length and BaseAddress are only meaningful for parsed records.
type Leader struct {
	Length        int  // 00-04 byte positions
	Status        byte // 05
	Type          byte // 06
	BibLevel      byte // 07
	Control       byte // 08
	Coding        byte // 09
	BaseAddress   int  // 12-16
	EncodingLevel byte // 17
	Form          byte // 18
	Multipart     byte // 19
}

// Field is implemented by *ControlField and *DataField.
type Field interface {
	fieldTag() string
	String() string
}

// ControlField just contains a Tag and a Value.
type ControlField struct {
	Tag   string
	Value string
}

// DataField contains two Indicators, a Tag, and a slice of SubFields. If
// you want a specific subfield or subfields you should use the SubField
// or Get methods.
type DataField struct {
	Indicator1 string
	Indicator2 string
	Tag        string
	SubFields  []SubField
}

// SubField contains a Code and a Value.
type SubField struct {
	Code  string
	Value string
}

// IsControlTag reports whether tag belongs to a control field.
func IsControlTag(tag string) bool {
	return tag < "010"
}

func (c *ControlField) fieldTag() string { return c.Tag }
func (d *DataField) fieldTag() string    { return d.Tag }

// String renders the field in the mnemonic form, e.g. "=008  190306s2017".
func (c *ControlField) String() string {
	return fmt.Sprintf("=%s  %s", c.Tag, strings.ReplaceAll(c.Value, " ", "\\"))
}

// String renders the field in the mnemonic form, e.g. "=245  10$aFoo".
func (d *DataField) String() string {
	var b strings.Builder
	b.WriteString("=")
	b.WriteString(d.Tag)
	b.WriteString("  ")
	b.WriteString(mnemonicIndicator(d.Indicator1))
	b.WriteString(mnemonicIndicator(d.Indicator2))
	for _, sf := range d.SubFields {
		b.WriteString("$")
		b.WriteString(sf.Code)
		b.WriteString(sf.Value)
	}
	return b.String()
}

func mnemonicIndicator(ind string) string {
	if ind == "" || ind == " " {
		return "\\"
	}
	return ind
}

// String returns the 24 character leader. Unset bytes are rendered as
// blanks.
func (l Leader) String() string {
	return fmt.Sprintf("%05d%c%c%c%c%c22%05d%c%c%c4500",
		l.Length, blank(l.Status), blank(l.Type), blank(l.BibLevel),
		blank(l.Control), blank(l.Coding), l.BaseAddress,
		blank(l.EncodingLevel), blank(l.Form), blank(l.Multipart))
}

func blank(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}

// NewRecord returns an empty record with the given leader.
func NewRecord(leader Leader) *Record {
	return &Record{Leader: leader}
}

// ControlNum returns the record's control number or an empty string when
// the record has no 001 field.
func (r *Record) ControlNum() string {
	cfs := r.ControlField("001")
	if len(cfs) == 0 {
		return ""
	}
	return strings.TrimSpace(cfs[0].Value)
}

// Get returns the first field with the given tag.
func (r *Record) Get(tag string) (Field, bool) {
	for _, f := range r.Fields {
		if f.fieldTag() == tag {
			return f, true
		}
	}
	return nil, false
}

// Has reports whether the record contains at least one field with the tag.
func (r *Record) Has(tag string) bool {
	_, ok := r.Get(tag)
	return ok
}

// GetFields returns all fields matching any of the tags in document order.
func (r *Record) GetFields(tag ...string) []Field {
	var fields []Field
	for _, f := range r.Fields {
		for _, t := range tag {
			if f.fieldTag() == t {
				fields = append(fields, f)
				break
			}
		}
	}
	return fields
}

// DataField method takes an arbitrary number of tag strings and returns
// a slice of matching DataFields. Note that one tag may return multiple
// DataFields as they can be repeated.
func (r *Record) DataField(tag ...string) []*DataField {
	fields := make([]*DataField, 0, len(tag))
	for _, t := range tag {
		for _, f := range r.Fields {
			field, ok := f.(*DataField)
			if ok && field.Tag == t {
				fields = append(fields, field)
			}
		}
	}
	return fields
}

// ControlField method takes an arbitrary number of tag strings and returns
// a slice of matching ControlFields.
func (r *Record) ControlField(tag ...string) []*ControlField {
	fields := make([]*ControlField, 0, len(tag))
	for _, t := range tag {
		for _, f := range r.Fields {
			field, ok := f.(*ControlField)
			if ok && field.Tag == t {
				fields = append(fields, field)
			}
		}
	}
	return fields
}

// AddField appends fields to the end of the record.
func (r *Record) AddField(f ...Field) {
	r.Fields = append(r.Fields, f...)
}

// RemoveFields removes every field with one of the given tags and returns
// the number of removed fields.
func (r *Record) RemoveFields(tag ...string) int {
	kept := r.Fields[:0]
	removed := 0
	for _, f := range r.Fields {
		if containsTag(tag, f.fieldTag()) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	clear(r.Fields[len(kept):])
	r.Fields = kept
	return removed
}

// RemoveField removes the given field instance from the record.
func (r *Record) RemoveField(field Field) bool {
	for i, f := range r.Fields {
		if f == field {
			r.Fields = append(r.Fields[:i], r.Fields[i+1:]...)
			return true
		}
	}
	return false
}

// All iterates over the fields in document order together with their
// position in the record.
func (r *Record) All() iter.Seq2[int, Field] {
	return func(yield func(int, Field) bool) {
		for i, f := range r.Fields {
			if !yield(i, f) {
				return
			}
		}
	}
}

// FieldAfter returns the field immediately following position i.
func (r *Record) FieldAfter(i int) (Field, bool) {
	if i < 0 || i+1 >= len(r.Fields) {
		return nil, false
	}
	return r.Fields[i+1], true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SubField takes an arbitrary number of subfield code strings and returns
// a slice of SubFields.
func (d *DataField) SubField(subfield ...string) []SubField {
	fields := make([]SubField, 0, len(subfield))
	for _, s := range subfield {
		for _, f := range d.SubFields {
			if f.Code == s {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// Get returns the value of the first subfield with the given code.
func (d *DataField) Get(code string) (string, bool) {
	for _, sf := range d.SubFields {
		if sf.Code == code {
			return sf.Value, true
		}
	}
	return "", false
}

// Values returns the values of all subfields with the given code.
func (d *DataField) Values(code string) []string {
	var values []string
	for _, sf := range d.SubFields {
		if sf.Code == code {
			values = append(values, sf.Value)
		}
	}
	return values
}

// Value joins the values of all subfields with a single space.
func (d *DataField) Value() string {
	values := make([]string, 0, len(d.SubFields))
	for _, sf := range d.SubFields {
		values = append(values, strings.TrimSpace(sf.Value))
	}
	return strings.Join(values, " ")
}

// AddSubField appends a subfield.
func (d *DataField) AddSubField(code, value string) {
	d.SubFields = append(d.SubFields, SubField{code, value})
}

// RemoveSubFields deletes all subfields with the given code.
func (d *DataField) RemoveSubFields(code string) {
	kept := d.SubFields[:0]
	for _, sf := range d.SubFields {
		if sf.Code != code {
			kept = append(kept, sf)
		}
	}
	d.SubFields = kept
}

func (d *DataField) matches(tag string, ind1 string, ind2 string) bool {
	t := d.Tag == tag
	i1 := ind1 == "*" || d.Indicator1 == ind1
	i2 := ind2 == "*" || d.Indicator2 == ind2
	return t && i1 && i2
}

// Filter takes one or more tag queries and returns a slice of strings
// matching the selected subfield values. A tag query consists of the
// three digit MARC tag optionally followed by one or more subfield codes,
// for example: "245ac", "650x" or "100". Filtering for indicators can be
// done by including the two desired indicators between pipes after the tag.
// An * character can be used for any inidicator, for example: "245|*1|ac"
// or 650|01|x.
func (r *Record) Filter(query ...string) [][]string {
	var res [][]string
	for _, q := range query {
		if len(q) < 3 {
			continue
		}
		tag := q[:3]
		for _, field := range r.Fields {
			var values []string
			switch f := field.(type) {
			case *ControlField:
				if f.Tag == tag {
					values = append(values, f.Value)
					res = append(res, values)
				}
			case *DataField:
				ind := strings.Index(q, "|")
				var subs string
				ind1, ind2 := "*", "*"
				if ind > -1 && len(q) >= ind+4 {
					ind1, ind2 = string(q[ind+1]), string(q[ind+2])
					subs = q[ind+4:]
				} else {
					subs = q[3:]
				}
				if f.matches(tag, ind1, ind2) {
					if len(subs) != 0 {
						for _, sf := range f.SubField(strings.Split(subs, "")...) {
							values = append(values, sf.Value)
						}
					} else {
						for _, sf := range f.SubFields {
							values = append(values, sf.Value)
						}
					}
					if len(values) > 0 {
						res = append(res, values)
					}
				}
			}
		}
	}
	return res
}

// Parse builds a Record from a single ISO 2709 framed record. The leader,
// directory and every field are validated; the returned error wraps one of
// ErrLeaderInvalid, ErrBaseAddressInvalid, ErrDirectoryInvalid or
// ErrFieldInvalid.
func Parse(data []byte) (*Record, error) {
	if len(data) < leaderLen {
		return nil, fmt.Errorf("%w: record shorter than %d bytes", ErrLeaderInvalid, leaderLen)
	}
	length, err := strconv.Atoi(string(data[0:5]))
	if err != nil {
		return nil, fmt.Errorf("%w: could not determine record length", ErrLeaderInvalid)
	}
	if length != len(data) {
		return nil, fmt.Errorf("%w: stated length %d, got %d bytes", ErrLeaderInvalid, length, len(data))
	}
	start, err := strconv.Atoi(string(data[12:17]))
	if err != nil {
		return nil, fmt.Errorf("%w: could not determine record start", ErrBaseAddressInvalid)
	}
	if start <= leaderLen || start > len(data) {
		return nil, fmt.Errorf("%w: %d", ErrBaseAddressInvalid, start)
	}
	if data[start-1] != ft {
		return nil, fmt.Errorf("%w: directory is not terminated", ErrDirectoryInvalid)
	}

	rec := &Record{}
	rec.Data = append([]byte(nil), data...)
	rec.Leader = Leader{
		Length:        length,
		Status:        data[5],
		Type:          data[6],
		BibLevel:      data[7],
		Control:       data[8],
		Coding:        data[9],
		BaseAddress:   start,
		EncodingLevel: data[17],
		Form:          data[18],
		Multipart:     data[19],
	}

	body := data[start:]
	dirs := data[leaderLen : start-1]
	if len(dirs)%dirEntryLen != 0 {
		return nil, fmt.Errorf("%w: directory length %d", ErrDirectoryInvalid, len(dirs))
	}

	for len(dirs) >= dirEntryLen {
		tag := string(dirs[:3])
		length, err := strconv.Atoi(string(dirs[3:7]))
		if err != nil || length < 1 {
			return nil, fmt.Errorf("%w: could not determine length of field %s", ErrDirectoryInvalid, tag)
		}
		begin, err := strconv.Atoi(string(dirs[7:12]))
		if err != nil || begin < 0 {
			return nil, fmt.Errorf("%w: could not determine start of field %s", ErrDirectoryInvalid, tag)
		}
		if len(body) < begin+length {
			return nil, fmt.Errorf("%w: reported length of field %s incorrect", ErrDirectoryInvalid, tag)
		}
		fdata := body[begin : begin+length-1] // length includes field terminator
		if IsControlTag(tag) {
			rec.Fields = append(rec.Fields, &ControlField{tag, string(fdata)})
		} else {
			df, err := makeDataField(tag, fdata)
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, df)
		}
		dirs = dirs[dirEntryLen:]
	}
	return rec, nil
}

func makeDataField(tag string, data []byte) (*DataField, error) {
	d := &DataField{Tag: tag}
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: invalid indicators in field %s", ErrFieldInvalid, tag)
	}
	d.Indicator1 = string(data[0])
	d.Indicator2 = string(data[1])
	rest := data[2:]
	if len(rest) == 0 {
		return d, nil
	}
	if rest[0] != st {
		return nil, fmt.Errorf("%w: missing subfield delimiter in field %s", ErrFieldInvalid, tag)
	}
	for _, sf := range bytes.Split(rest[1:], []byte{st}) {
		if len(sf) > 0 {
			d.SubFields = append(d.SubFields, SubField{string(sf[0]), string(sf[1:])})
		}
	}
	return d, nil
}
