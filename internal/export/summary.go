// Package export flattens bibs into summaries and writes them as JSON lines.
package export

import (
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookops/sierramarc"
)

// Summary is the flat view of a Bib written by the index and export
// commands.
type Summary struct {
	Library         string            `json:"library"`
	ControlNumber   string            `json:"control_number,omitempty"`
	BibID           string            `json:"bib_id,omitempty"`
	BibIDNormalized int               `json:"bib_id_normalized,omitempty"`
	Format          string            `json:"format,omitempty"`
	RecordType      string            `json:"record_type"`
	Audience        string            `json:"audience,omitempty"`
	FormOfItem      string            `json:"form_of_item,omitempty"`
	Created         *time.Time        `json:"created,omitempty"`
	Cataloged       *time.Time        `json:"cataloged,omitempty"`
	MainEntry       string            `json:"main_entry,omitempty"`
	BranchCallNo    string            `json:"branch_call_no,omitempty"`
	ResearchCallNo  string            `json:"research_call_no,omitempty"`
	Dewey           string            `json:"dewey,omitempty"`
	DeweyShortened  string            `json:"dewey_shortened,omitempty"`
	LCCN            string            `json:"lccn,omitempty"`
	UPC             string            `json:"upc,omitempty"`
	OverdriveNumber string            `json:"overdrive_number,omitempty"`
	Languages       []string          `json:"languages,omitempty"`
	OclcNumbers     map[string]string `json:"oclc_numbers,omitempty"`
	Suppressed      bool              `json:"suppressed"`
	Collection      string            `json:"collection,omitempty"`
	Subjects        []string          `json:"subjects,omitempty"`
	Orders          []OrderSummary    `json:"orders,omitempty"`
	Items           []ItemSummary     `json:"items,omitempty"`
}

type OrderSummary struct {
	OID         int        `json:"oid"`
	Created     *time.Time `json:"created,omitempty"`
	Copies      int        `json:"copies,omitempty"`
	Form        string     `json:"form,omitempty"`
	Lang        string     `json:"lang,omitempty"`
	Status      string     `json:"status,omitempty"`
	OrderType   string     `json:"order_type,omitempty"`
	Country     string     `json:"country,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	Price       float64    `json:"price,omitempty"`
	Funds       []string   `json:"funds,omitempty"`
	Locations   []string   `json:"locations,omitempty"`
	VendorNotes string     `json:"vendor_notes,omitempty"`
}

type ItemSummary struct {
	ItemID   string `json:"item_id,omitempty"`
	Barcode  string `json:"barcode,omitempty"`
	CallNo   string `json:"call_no,omitempty"`
	Location string `json:"location,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   string `json:"status,omitempty"`
	Price    string `json:"price,omitempty"`
}

func value(v string, _ bool) string { return v }

func number(n int, _ bool) int { return n }

func datePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}

// FromBib builds the summary of b. Orders are listed newest first.
func FromBib(b *sierramarc.Bib) (Summary, error) {
	s := Summary{
		Library:         b.Library().String(),
		ControlNumber:   value(b.ControlNumber()),
		BibID:           value(b.SierraBibID()),
		BibIDNormalized: number(b.SierraBibIDNormalized()),
		Format:          value(b.SierraBibFormat()),
		RecordType:      b.RecordType(),
		Audience:        value(b.Audience()),
		FormOfItem:      value(b.FormOfItem()),
		Created:         datePtr(b.CreatedDate()),
		Cataloged:       datePtr(b.CatalogingDate()),
		BranchCallNo:    value(b.BranchCallNo()),
		ResearchCallNo:  value(b.ResearchCallNo()),
		Dewey:           value(b.Dewey()),
		DeweyShortened:  value(b.DeweyShortened()),
		LCCN:            value(b.LCCN()),
		UPC:             value(b.UPCNumber()),
		OverdriveNumber: value(b.OverdriveNumber()),
		Languages:       b.Languages(),
		Suppressed:      b.Suppressed(),
		Collection:      value(b.Collection()),
	}
	if me, err := b.MainEntry(); err == nil {
		s.MainEntry = me.Value()
	}
	if nos := b.OclcNumbers(); len(nos) > 0 {
		s.OclcNumbers = nos
	}
	for _, df := range b.SubjectsLC() {
		s.Subjects = append(s.Subjects, df.Value())
	}

	orders, err := b.SortOrders(sierramarc.SortDescending)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize orders: %w", err)
	}
	for _, o := range orders {
		price, _ := o.Price()
		notes, _ := o.VendorNotes()
		s.Orders = append(s.Orders, OrderSummary{
			OID:         o.OID(),
			Created:     datePtr(o.Created()),
			Copies:      number(o.Copies()),
			Form:        value(o.Form()),
			Lang:        value(o.Lang()),
			Status:      value(o.Status()),
			OrderType:   value(o.OrderType()),
			Country:     value(o.Country()),
			Vendor:      value(o.Vendor()),
			Price:       price,
			Funds:       o.Funds(),
			Locations:   o.Locations(),
			VendorNotes: value(sierramarc.NormalizeVendorNote(notes)),
		})
	}

	items, err := b.Items()
	if err != nil {
		return Summary{}, fmt.Errorf("summarize items: %w", err)
	}
	for _, it := range items {
		s.Items = append(s.Items, ItemSummary{
			ItemID:   value(it.ItemID()),
			Barcode:  value(it.Barcode()),
			CallNo:   value(it.CallNo()),
			Location: value(it.Location()),
			Type:     value(it.Type()),
			Status:   value(it.Status()),
			Price:    value(it.Price()),
		})
	}
	return s, nil
}

// Encoder writes one JSON document per line.
type Encoder struct {
	enc *jsoniter.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: jsoniter.ConfigFastest.NewEncoder(w)}
}

func (e *Encoder) Encode(v any) error {
	return e.enc.Encode(v)
}
