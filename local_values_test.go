package sierramarc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		arg  string
		want time.Time
		ok   bool
	}{
		{"01-30-21", date(2021, 1, 30), true},
		{"08-02-2021 16:19", date(2021, 8, 2), true},
		{"12-30-2020 9:51", date(2020, 12, 30), true},
		{"01-30-2022", date(2022, 1, 30), true},
		// two digit years follow time.Parse: 00-68 is 20xx, 69-99 is 19xx
		{"02-02-02", date(2002, 2, 2), true},
		{"01-01-68", date(2068, 1, 1), true},
		{"01-01-69", date(1969, 1, 1), true},
		{"  -  -  ", time.Time{}, false},
		{"2022-01-30", time.Time{}, false},
		{"foo", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, c := range cases {
		t.Run(c.arg, func(t *testing.T) {
			got, ok := NormalizeDate(c.arg)
			assert.Equal(t, c.ok, ok)
			assert.True(t, c.want.Equal(got), "expected %v, got %v", c.want, got)
		})
	}
}

func TestNormalizeDewey(t *testing.T) {
	cases := []struct {
		arg  string
		want string
		ok   bool
	}{
		{"[Fic]", "", false},
		{"[E]", "", false},
		{"909", "909", true},
		{"001.54", "001.54", true},
		{"362.84/924043809049", "362.84924043809049", true},
		{"362.84/9040", "362.84904", true},
		{"j574", "574", true},
		{"942.082 [B]", "942.082", true},
		{"364'.971", "364.971", true},
		{"C364/.971", "364.971", true},
		{"505 ", "505", true},
		{"900", "900", true},
		{"900.100", "900.1", true},
		{"900.", "900", true},
		{"", "", false},
	}
	for _, c := range cases {
		t.Run(c.arg, func(t *testing.T) {
			got, ok := NormalizeDewey(c.arg)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
			if ok {
				again, ok := NormalizeDewey(got)
				assert.True(t, ok)
				assert.Equal(t, got, again, "normalization must be idempotent")
			}
		})
	}
}

func TestShortenDewey(t *testing.T) {
	cases := []struct {
		arg    string
		digits int
		want   string
	}{
		{"505", DefaultDeweyDigits, "505"},
		{"362.84924043809049", DefaultDeweyDigits, "362.8492"},
		{"362.849040", DefaultDeweyDigits, "362.849"},
		{"900", DefaultDeweyDigits, "900"},
		{"900.100", DefaultDeweyDigits, "900.1"},
		{"512.1234", JuvenileDeweyDigits, "512.12"},
		{"512.1034", JuvenileDeweyDigits, "512.1"},
		{"512.0034", JuvenileDeweyDigits, "512"},
	}
	for _, c := range cases {
		t.Run(c.arg, func(t *testing.T) {
			assert.Equal(t, c.want, ShortenDewey(c.arg, c.digits))
		})
	}
}

func TestNormalizeLocationCode(t *testing.T) {
	cases := map[string]string{
		"(3)sn":    "sn",
		"(2)btj0f": "btj0f",
		"41anf(5)": "41anf",
		"41anf":    "41anf",
		"(3)snj0y": "snj0y",
		"sn)j(0y":  "sn)j(0y",
	}
	for arg, want := range cases {
		t.Run(arg, func(t *testing.T) {
			assert.Equal(t, want, NormalizeLocationCode(arg))
		})
	}
}

func TestLocationSlices(t *testing.T) {
	type slice struct {
		value string
		ok    bool
	}
	cases := []struct {
		loc                      string
		branch, audience, shelf slice
	}{
		{"snj0y", slice{"sn", true}, slice{"j", true}, slice{"0y", true}},
		{"41anf", slice{"41", true}, slice{"a", true}, slice{"nf", true}},
		{"sn", slice{"sn", true}, slice{}, slice{}},
		{"41", slice{"41", true}, slice{}, slice{}},
		{"sn   ", slice{"sn", true}, slice{}, slice{}},
		{"tb", slice{"tb", true}, slice{}, slice{}},
		{" ", slice{}, slice{}, slice{}},
		{"", slice{}, slice{}, slice{}},
	}
	for _, c := range cases {
		t.Run(c.loc, func(t *testing.T) {
			v, ok := BranchCode(c.loc)
			assert.Equal(t, c.branch, slice{v, ok}, "branch")
			v, ok = AudienceCode(c.loc)
			assert.Equal(t, c.audience, slice{v, ok}, "audience")
			v, ok = ShelfCode(c.loc)
			assert.Equal(t, c.shelf, slice{v, ok}, "shelf")
		})
	}
}

func TestNormalizeOrderNumber(t *testing.T) {
	cases := []struct {
		arg  string
		want int
		ok   bool
	}{
		{".o28876714", 2887671, true},
		{".o12345678", 1234567, true},
		{".o10000000", 1000000, true},
		{".o10000010", 1000001, true},
		{".ofoo", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		t.Run(c.arg, func(t *testing.T) {
			got, ok := NormalizeOrderNumber(c.arg)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestNormalizeVendorNote(t *testing.T) {
	cases := []struct {
		arg  string
		want string
		ok   bool
	}{
		{"foo", "foo", true},
		{"FOO", "foo", true},
		{"foo,bar", "foo,bar", true},
		{"Foo,Bar", "foo,bar", true},
		{"foo , bar", "foo,bar", true},
		{" foo  ,  bar  ", "foo,bar", true},
		{",foo", "foo", true},
		{"foo,", "foo", true},
		{" , ", "", false},
		{"foo;bar", "foo,bar", true},
		{" Foo ;  Bar ", "foo,bar", true},
		{"; Foo", "foo", true},
		{"", "", false},
		{"e", "", false},
		{"e,bio", "bio", true},
		{"e,m", "m", true},
		{"t,s", "t,s", true},
		{"n,bio", "bio", true},
		{"n, w", "w", true},
		{"N,BIO", "bio", true},
		{"bio, n", "bio", true},
		{"ref,lit;fic", "lit,fic", true},
		{"lit;non", "lit,non", true},
	}
	for _, c := range cases {
		t.Run(c.arg, func(t *testing.T) {
			got, ok := NormalizeVendorNote(c.arg)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}
