package sierramarc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderNumbered(number string) *DataField {
	df := stub960()
	df.RemoveSubFields("z")
	df.AddSubField("z", number)
	return df
}

func bibWith(t *testing.T, lib Library, fields ...Field) *Bib {
	t.Helper()
	bib := stubBib(t, lib)
	bib.AddField(fields...)
	return bib
}

func TestOrder(t *testing.T) {
	bib := bibWith(t, NYPL, stub960(), stub961())
	orders, err := bib.Orders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]

	assert.Equal(t, 1000001, o.OID())
	assert.Equal(t, []string{"snj0y", "agj0y", "muj0y", "inj0y"}, o.Locations())
	assert.Equal(t, []string{"j", "j", "j", "j"}, o.Audiences())
	assert.Equal(t, []string{"sn", "ag", "mu", "in"}, o.Branches())
	assert.Equal(t, []string{"0y", "0y", "0y", "0y"}, o.Shelves())

	copies, ok := o.Copies()
	assert.True(t, ok)
	assert.Equal(t, 13, copies)

	created, ok := o.Created()
	assert.True(t, ok)
	assert.True(t, time.Date(2021, 8, 2, 0, 0, 0, 0, time.UTC).Equal(created))

	for name, fn := range map[string]func() (string, bool){
		"b":     o.Form,
		"eng":   o.Lang,
		"o":     o.Status,
		"l":     o.OrderType,
		"xxu":   o.Country,
		"btlea": o.Vendor,
	} {
		v, ok := fn()
		assert.True(t, ok, name)
		assert.Equal(t, name, v)
	}

	assert.Equal(t, []string{"lease"}, o.Funds())

	price, ok := o.Price()
	assert.True(t, ok)
	assert.InDelta(t, 13.20, price, 0.0001)

	assert.True(t, o.HasDetail())
	notes, ok := o.VendorNotes()
	assert.True(t, ok)
	assert.Equal(t, "e,bio", notes)
}

func TestOrderLocationsAreCopied(t *testing.T) {
	o, err := NewOrder(stub960(), nil)
	require.NoError(t, err)
	locs := o.Locations()
	locs[0] = "changed"
	assert.Equal(t, "snj0y", o.Locations()[0])
}

func TestOrderWithoutDetail(t *testing.T) {
	t.Run("fixed field last in record", func(t *testing.T) {
		bib := bibWith(t, BPL, stub960())
		orders, err := bib.Orders()
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.False(t, orders[0].HasDetail())
		_, ok := orders[0].VendorNotes()
		assert.False(t, ok)
	})
	t.Run("961 not adjacent", func(t *testing.T) {
		bib := bibWith(t, BPL, stub960(), dataField("500", " ", " ", "a", "Note."), stub961())
		orders, err := bib.Orders()
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.False(t, orders[0].HasDetail())
	})
	t.Run("following field is a control field", func(t *testing.T) {
		o, err := NewOrder(stub960(), controlField("005", "20210802"))
		require.NoError(t, err)
		assert.False(t, o.HasDetail())
	})
}

func TestOrderUncodedValues(t *testing.T) {
	df := dataField("960", " ", " ",
		"g", "-",
		"w", "-",
		"m", "oo",
		"o", "x",
		"q", "  -  -  ",
		"s", "{{dollar}}",
		"t", "(3)",
		"z", ".o10000010",
	)
	o, err := NewOrder(df, nil)
	require.NoError(t, err)

	for _, fn := range []func() (string, bool){o.Form, o.Lang, o.Status, o.OrderType, o.Country, o.Vendor} {
		_, ok := fn()
		assert.False(t, ok)
	}
	_, ok := o.Copies()
	assert.False(t, ok)
	_, ok = o.Created()
	assert.False(t, ok)
	_, ok = o.Price()
	assert.False(t, ok)
	assert.Empty(t, o.Locations())
	assert.Empty(t, o.Funds())
}

func TestOrderNumberErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		df := stub960()
		df.RemoveSubFields("z")
		_, err := NewOrder(df, nil)
		assert.True(t, errors.Is(err, ErrMissingOrderNumber))
	})
	t.Run("blank", func(t *testing.T) {
		_, err := NewOrder(orderNumbered("  "), nil)
		assert.True(t, errors.Is(err, ErrMissingOrderNumber))
	})
	t.Run("invalid", func(t *testing.T) {
		_, err := NewOrder(orderNumbered(".ofoo"), nil)
		assert.True(t, errors.Is(err, ErrInvalidOrderNumber))
	})
	t.Run("nypl record", func(t *testing.T) {
		df := stub960()
		df.RemoveSubFields("z")
		bib := bibWith(t, NYPL, df)
		_, err := bib.Orders()
		assert.True(t, errors.Is(err, ErrMissingOrderNumber))
	})
}

func TestSortOrders(t *testing.T) {
	bib := bibWith(t, NYPL,
		orderNumbered(".o10000010"), stub961(),
		orderNumbered(".o20000020"),
		orderNumbered(".o30000030"),
	)
	oids := func(orders []Order) []int {
		var ids []int
		for _, o := range orders {
			ids = append(ids, o.OID())
		}
		return ids
	}

	orders, err := bib.SortOrders(SortAscending)
	require.NoError(t, err)
	assert.Equal(t, []int{1000001, 2000002, 3000003}, oids(orders))

	orders, err = bib.SortOrders(SortDescending)
	require.NoError(t, err)
	assert.Equal(t, []int{3000003, 2000002, 1000001}, oids(orders))
	assert.False(t, orders[0].HasDetail())
	assert.True(t, orders[2].HasDetail())

	_, err = bib.SortOrders("foo")
	assert.True(t, errors.Is(err, ErrInvalidSortMode))

	all, err := bib.Orders()
	require.NoError(t, err)
	sorted, err := SortOrders(all, SortDescending)
	require.NoError(t, err)
	assert.Equal(t, []int{1000001, 2000002, 3000003}, oids(all), "input must not be reordered")
	assert.Equal(t, []int{3000003, 2000002, 1000001}, oids(sorted))
}

func TestOrdersEmpty(t *testing.T) {
	orders, err := stubBib(t, NYPL).Orders()
	require.NoError(t, err)
	assert.Empty(t, orders)
}
