package placeholders

import (
	"encoding/json"
	"fmt"
)

// FormatType names a Format variant on the wire.
type FormatType string

const (
	FormatText     FormatType = "text"
	FormatDate     FormatType = "date"
	FormatCurrency FormatType = "currency"
	FormatNumber   FormatType = "number"
	FormatEmail    FormatType = "email"
	FormatPhone    FormatType = "phone"
)

// Format is a closed set of value formats. The concrete types are
// TextFormat, DateFormat, CurrencyFormat, NumberFormat, EmailFormat and PhoneFormat.
type Format interface {
	Type() FormatType
	isFormat()
}

type TextFormat struct{}

type DateFormat struct{}

// CurrencyFormat carries an ISO 4217 code such as "USD".
type CurrencyFormat struct {
	Code string
}

// NumberFormat optionally restricts values to a regular expression.
type NumberFormat struct {
	Pattern string
}

type EmailFormat struct{}

type PhoneFormat struct{}

func (TextFormat) Type() FormatType     { return FormatText }
func (DateFormat) Type() FormatType     { return FormatDate }
func (CurrencyFormat) Type() FormatType { return FormatCurrency }
func (NumberFormat) Type() FormatType   { return FormatNumber }
func (EmailFormat) Type() FormatType    { return FormatEmail }
func (PhoneFormat) Type() FormatType    { return FormatPhone }

func (TextFormat) isFormat()     {}
func (DateFormat) isFormat()     {}
func (CurrencyFormat) isFormat() {}
func (NumberFormat) isFormat()   {}
func (EmailFormat) isFormat()    {}
func (PhoneFormat) isFormat()    {}

// Position places a signature field on the rendered artifact.
type Position struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placeholder is a named variable embedded in a document body as {{Name}}.
type Placeholder struct {
	Name        string
	Description string
	Value       string
	Format      Format
	Signer      bool
	Position    *Position
}

// IsFilled reports whether the placeholder carries a value.
func (p Placeholder) IsFilled() bool {
	return p.Value != ""
}

// Clone returns a copy that shares no pointers with p.
func (p Placeholder) Clone() Placeholder {
	out := p
	if out.Format == nil {
		out.Format = TextFormat{}
	}
	if p.Position != nil {
		pos := *p.Position
		out.Position = &pos
	}
	return out
}

// FormatWire is the JSON shape of a Format.
type FormatWire struct {
	Type         FormatType `json:"type"`
	CurrencyCode string     `json:"currencyCode,omitempty"`
	Pattern      string     `json:"pattern,omitempty"`
}

// EncodeFormat converts f to its wire shape. A nil format encodes as text.
func EncodeFormat(f Format) FormatWire {
	switch v := f.(type) {
	case nil, TextFormat:
		return FormatWire{Type: FormatText}
	case DateFormat:
		return FormatWire{Type: FormatDate}
	case CurrencyFormat:
		return FormatWire{Type: FormatCurrency, CurrencyCode: v.Code}
	case NumberFormat:
		return FormatWire{Type: FormatNumber, Pattern: v.Pattern}
	case EmailFormat:
		return FormatWire{Type: FormatEmail}
	case PhoneFormat:
		return FormatWire{Type: FormatPhone}
	default:
		return FormatWire{Type: f.Type()}
	}
}

// DecodeFormat converts a wire shape back into a Format. An empty type decodes as text.
func DecodeFormat(w FormatWire) (Format, error) {
	switch w.Type {
	case "", FormatText:
		return TextFormat{}, nil
	case FormatDate:
		return DateFormat{}, nil
	case FormatCurrency:
		return CurrencyFormat{Code: w.CurrencyCode}, nil
	case FormatNumber:
		return NumberFormat{Pattern: w.Pattern}, nil
	case FormatEmail:
		return EmailFormat{}, nil
	case FormatPhone:
		return PhoneFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown placeholder format %q", w.Type)
	}
}

type placeholderJSON struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Value       string     `json:"value"`
	Format      FormatWire `json:"format"`
	Signer      bool       `json:"signer"`
	Position    *Position  `json:"position,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Placeholder) MarshalJSON() ([]byte, error) {
	return json.Marshal(placeholderJSON{
		Name:        p.Name,
		Description: p.Description,
		Value:       p.Value,
		Format:      EncodeFormat(p.Format),
		Signer:      p.Signer,
		Position:    p.Position,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Placeholder) UnmarshalJSON(data []byte) error {
	var raw placeholderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	format, err := DecodeFormat(raw.Format)
	if err != nil {
		return err
	}
	*p = Placeholder{
		Name:        raw.Name,
		Description: raw.Description,
		Value:       raw.Value,
		Format:      format,
		Signer:      raw.Signer,
		Position:    raw.Position,
	}
	return nil
}
