package automation

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/nvandessel/simsweep/internal/param"
)

type xmlCombination struct {
	XMLName xml.Name   `xml:"combination"`
	ID      string     `xml:"id,attr"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Locator string `xml:"locator,attr"`
	Type    string `xml:"type,attr"`
	Value   string `xml:",chardata"`
}

// MarshalXML implements xml.Marshaler. Every entry records its locator, its
// value type and the formatted value so the combination can be read back.
func (c Combination) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	doc := xmlCombination{ID: c.ID(), Entries: make([]xmlEntry, len(c.entries))}
	for i, entry := range c.entries {
		typ, _ := param.TypeName(entry.Value)
		doc.Entries[i] = xmlEntry{
			Locator: entry.Locator.String(),
			Type:    typ,
			Value:   param.Format(entry.Value),
		}
	}
	return e.EncodeElement(doc, xml.StartElement{Name: xml.Name{Local: "combination"}})
}

// UnmarshalXML implements xml.Unmarshaler.
func (c *Combination) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var doc xmlCombination
	if err := d.DecodeElement(&doc, &start); err != nil {
		return err
	}
	entries := make([]Entry, len(doc.Entries))
	for i, x := range doc.Entries {
		loc, err := param.ParseLocator(x.Locator)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		v, err := param.ParseValue(x.Type, x.Value)
		if err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, loc, err)
		}
		entries[i] = Entry{Locator: loc, Value: v}
	}
	parsed, err := NewCombination(entries...)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// WriteXML writes the combination as an indented XML document.
func WriteXML(w io.Writer, c Combination) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding combination: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadXML decodes a combination written by WriteXML.
func ReadXML(r io.Reader) (Combination, error) {
	var c Combination
	if err := xml.NewDecoder(r).Decode(&c); err != nil {
		return Combination{}, fmt.Errorf("decoding combination: %w", err)
	}
	return c, nil
}
