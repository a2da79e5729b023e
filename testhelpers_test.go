package sierramarc

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// encodeRecord serializes leader and fields into an ISO 2709 record.
func encodeRecord(t testing.TB, leader Leader, fields ...Field) []byte {
	t.Helper()
	var dir, body bytes.Buffer
	for _, f := range fields {
		var data bytes.Buffer
		switch f := f.(type) {
		case *ControlField:
			data.WriteString(f.Value)
		case *DataField:
			data.WriteString(f.Indicator1)
			data.WriteString(f.Indicator2)
			for _, sf := range f.SubFields {
				data.WriteByte(st)
				data.WriteString(sf.Code)
				data.WriteString(sf.Value)
			}
		default:
			t.Fatalf("unexpected field type %T", f)
		}
		data.WriteByte(ft)
		fmt.Fprintf(&dir, "%s%04d%05d", f.fieldTag(), data.Len(), body.Len())
		body.Write(data.Bytes())
	}
	dir.WriteByte(ft)
	body.WriteByte(rt)

	leader.BaseAddress = leaderLen + dir.Len()
	leader.Length = leader.BaseAddress + body.Len()
	ldr := leader.String()
	require.Len(t, ldr, leaderLen)

	var out bytes.Buffer
	out.WriteString(ldr)
	out.Write(dir.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

func stubLeader() Leader {
	return Leader{Status: 'p', Type: 'a', BibLevel: 'm', Coding: 'a', EncodingLevel: ' ', Form: 'i'}
}

func controlField(tag, value string) *ControlField {
	return &ControlField{Tag: tag, Value: value}
}

// dataField builds a field from alternating subfield codes and values.
func dataField(tag, ind1, ind2 string, subfields ...string) *DataField {
	df := &DataField{Tag: tag, Indicator1: ind1, Indicator2: ind2}
	for i := 0; i+1 < len(subfields); i += 2 {
		df.AddSubField(subfields[i], subfields[i+1])
	}
	return df
}

func stubRecord() *Record {
	rec := NewRecord(stubLeader())
	rec.AddField(
		controlField("008", "190306s2017    ht a   j      000 1 hat d"),
		dataField("100", "1", " ", "a", "Adams, John,", "e", "author."),
		dataField("245", "1", "4", "a", "The foo /", "c", "by John Adams."),
		dataField("264", " ", "1", "a", "Bar :", "b", "New York,", "c", "2021"),
	)
	return rec
}

func stubBib(t testing.TB, lib Library) *Bib {
	t.Helper()
	bib, err := NewBib(stubRecord(), lib)
	require.NoError(t, err)
	return bib
}

func stub960() *DataField {
	return dataField("960", " ", " ",
		"a", "l",
		"b", "-",
		"c", "j",
		"d", "c",
		"e", "d",
		"f", "a",
		"g", "b",
		"h", "-",
		"i", "l",
		"j", "-",
		"m", "o",
		"n", "-",
		"p", "  -  -  ",
		"q", "08-02-21",
		"r", "  -  -  ",
		"s", "{{dollar}}13.20",
		"t", "(3)snj0y",
		"t", "agj0y",
		"t", "muj0y",
		"t", "inj0y",
		"o", "13",
		"u", "lease",
		"v", "btlea",
		"w", "eng",
		"x", "xxu",
		"y", "1",
		"z", ".o10000010",
	)
}

func stub961() *DataField {
	return dataField("961", " ", " ", "h", "e,bio", "l", "1643137123")
}

func stubItem(tag, ind1, ind2 string) *DataField {
	return dataField(tag, ind1, ind2,
		"a", "ReCAP 25-000001",
		"c", "1",
		"g", "1",
		"h", "043",
		"i", "33433123456789",
		"l", "rc2ma",
		"m", "bar",
		"n", "baz",
		"o", "-",
		"p", "$5.00",
		"q", "-",
		"r", "-",
		"s", "b",
		"t", "55",
		"u", "-",
		"v", "LEILA",
		"y", ".i123456789",
	)
}
