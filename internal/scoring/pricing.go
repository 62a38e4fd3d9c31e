package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is a paid passport operation.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionShare    Action = "share"
	ActionPDF      Action = "pdf"
)

var ErrUnknownAction = errors.New("unknown passport action")

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionGenerate, ActionShare, ActionPDF:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// PricePoints are what the payment gate charges per action. They play no
// part in scoring.
type PricePoints struct {
	Generate decimal.Decimal `json:"generate"`
	Share    decimal.Decimal `json:"share"`
	PDF      decimal.Decimal `json:"pdf"`
	Currency string          `json:"currency"`
}

var DefaultPricePoints = PricePoints{
	Generate: decimal.NewFromInt(150),
	Share:    decimal.NewFromInt(50),
	PDF:      decimal.NewFromInt(75),
	Currency: "ZMW",
}

// NewPricePoints parses configured amounts. Blank amounts keep the default.
func NewPricePoints(generate, share, pdf, currency string) (PricePoints, error) {
	p := DefaultPricePoints
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{generate, &p.Generate},
		{share, &p.Share},
		{pdf, &p.PDF},
	} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(f.raw))
		if err != nil {
			return PricePoints{}, fmt.Errorf("invalid price %q: %w", f.raw, err)
		}
		if d.IsNegative() {
			return PricePoints{}, fmt.Errorf("invalid price %q: must not be negative", f.raw)
		}
		*f.dst = d
	}
	if c := strings.TrimSpace(currency); c != "" {
		p.Currency = strings.ToUpper(c)
	}
	return p, nil
}

func (p PricePoints) Price(a Action) (decimal.Decimal, error) {
	switch a {
	case ActionGenerate:
		return p.Generate, nil
	case ActionShare:
		return p.Share, nil
	case ActionPDF:
		return p.PDF, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
}
