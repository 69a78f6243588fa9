package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-page-restore/internal/config"
)

// Currency of every quote.
const Currency = "USD"

// DiscountTier applies Percent off the total once an order reaches MinPages.
type DiscountTier struct {
	MinPages int
	Percent  int
}

// Pricing turns page counts into purchase quotes.
type Pricing struct {
	PricePerPage decimal.Decimal
	Tiers        []DiscountTier // sorted by MinPages ascending
}

// Quote is the price of a credit purchase.
type Quote struct {
	Pages           int             `json:"pages"`
	Credits         int             `json:"credits"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
}

// NewPricing parses the ledger price list.
func NewPricing(cfg config.LedgerConfig) (*Pricing, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(cfg.PricePerPage))
	if err != nil {
		return nil, fmt.Errorf("price per page: %w", err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price per page must be >= 0")
	}
	tiers, err := ParseDiscountTiers(cfg.DiscountTiers)
	if err != nil {
		return nil, err
	}
	return &Pricing{PricePerPage: price, Tiers: tiers}, nil
}

// ParseDiscountTiers parses "minPages:percent" entries.
func ParseDiscountTiers(raw []string) ([]DiscountTier, error) {
	out := make([]DiscountTier, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		minStr, pctStr, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("discount tier %q: want minPages:percent", s)
		}
		minPages, err := strconv.Atoi(strings.TrimSpace(minStr))
		if err != nil || minPages <= 0 {
			return nil, fmt.Errorf("discount tier %q: bad page threshold", s)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(pctStr))
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("discount tier %q: bad percent", s)
		}
		out = append(out, DiscountTier{MinPages: minPages, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinPages < out[j].MinPages })
	return out, nil
}

// Discount returns the percent off for an order of pages.
func (p *Pricing) Discount(pages int) int {
	pct := 0
	for _, t := range p.Tiers {
		if pages >= t.MinPages {
			pct = t.Percent
		}
	}
	return pct
}

// Quote prices a purchase of pages credits.
func (p *Pricing) Quote(pages int) (Quote, error) {
	if pages <= 0 {
		return Quote{}, fmt.Errorf("%w: pages must be positive", ErrInvalidRequest)
	}
	pct := p.Discount(pages)
	subtotal := p.PricePerPage.Mul(decimal.NewFromInt(int64(pages)))
	factor := decimal.NewFromInt(int64(100 - pct)).Div(decimal.NewFromInt(100))
	return Quote{
		Pages:           pages,
		Credits:         pages,
		UnitPrice:       p.PricePerPage,
		DiscountPercent: pct,
		Subtotal:        subtotal.Round(2),
		Total:           subtotal.Mul(factor).Round(2),
		Currency:        Currency,
	}, nil
}
