package sierramarc

import "strings"

// DefaultSubjectVocabularies lists the subject source codes accepted in $2
// of headings with second indicator 7 unless WithSubjectVocabularies is
// used.
var DefaultSubjectVocabularies = []string{
	"bookops",
	"fast",
	"gsafd",
	"homoit",
	"lcgft",
	"lcsh",
	"lctgm",
}

var supportedSubjectTags = map[string]bool{
	"600": true,
	"610": true,
	"611": true,
	"630": true,
	"648": true,
	"650": true,
	"651": true,
	"655": true,
}

func isSubjectTag(tag string) bool {
	return strings.HasPrefix(tag, "6")
}

// isSupportedSubject reports whether df is an LCSH heading (second
// indicator 0) or a heading from one of the accepted vocabularies (second
// indicator 7 with a matching $2).
func (b *Bib) isSupportedSubject(df *DataField) bool {
	if !supportedSubjectTags[df.Tag] {
		return false
	}
	switch df.Indicator2 {
	case "0":
		return true
	case "7":
		for _, src := range df.Values("2") {
			if b.vocabularies[strings.ToLower(strings.TrimSpace(src))] {
				return true
			}
		}
	}
	return false
}

// SubjectsLC returns the supported subject headings in document order.
func (b *Bib) SubjectsLC() []*DataField {
	var subjects []*DataField
	for _, f := range b.Fields {
		df, ok := f.(*DataField)
		if ok && b.isSupportedSubject(df) {
			subjects = append(subjects, df)
		}
	}
	return subjects
}

// RemoveUnsupportedSubjects deletes every 6xx field that is not a supported
// subject heading and returns the number of deleted fields. It is the only
// Bib method that modifies the underlying record.
func (b *Bib) RemoveUnsupportedSubjects() int {
	var unsupported []Field
	for _, f := range b.Fields {
		df, ok := f.(*DataField)
		if ok && isSubjectTag(df.Tag) && !b.isSupportedSubject(df) {
			unsupported = append(unsupported, df)
		}
	}
	for _, f := range unsupported {
		b.RemoveField(f)
	}
	return len(unsupported)
}
