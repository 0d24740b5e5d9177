package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"pricemonitor/lib/timezone"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field names, in the order they are persisted.
const (
	FieldProductKey   = "product_key"
	FieldTitle        = "title"
	FieldPrice        = "price"
	FieldCurrency     = "currency"
	FieldUrl          = "url"
	FieldScrapedAt    = "scraped_at"
	FieldAvailability = "availability"
	FieldCondition    = "condition"
)

var Fields = []string{
	FieldProductKey,
	FieldTitle,
	FieldPrice,
	FieldCurrency,
	FieldUrl,
	FieldScrapedAt,
	FieldAvailability,
	FieldCondition,
}

// ProductSnapshot is one observation of a product's listed state.
// Treat it as a value, nothing in this module modifies a snapshot
// after it has been constructed.
type ProductSnapshot struct {
	ProductKey   string
	Title        string
	Price        decimal.Decimal
	Currency     string
	Url          string
	ScrapedAt    time.Time
	Availability string
	Condition    string
}

type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid snapshot field %s: %s: %s", e.Field, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("invalid snapshot field %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Extracted is the raw result of scraping one catalog entry.
type Extracted struct {
	ProductKey string
	Title      string
	// display text, ex. "$799.00" or "1.099,00 €"
	Price string
	// if empty, it is inferred from the price text
	Currency     string
	Url          string
	ScrapedAt    time.Time
	Availability string
	Condition    string
}

func New(e Extracted) (ProductSnapshot, error) {
	if e.ProductKey == "" {
		return ProductSnapshot{}, &ValidationError{Field: FieldProductKey, Reason: "missing"}
	}

	price := decimal.Zero
	currency := e.Currency
	if e.Price != "" {
		amount, inferred, err := ParsePrice(e.Price)
		if err != nil {
			return ProductSnapshot{}, &ValidationError{Field: FieldPrice, Reason: "unparsable", Err: err}
		}
		price = amount
		if currency == "" {
			currency = inferred
		}
	}

	scrapedAt := e.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = timezone.Now()
	}

	return build(ProductSnapshot{
		ProductKey:   e.ProductKey,
		Title:        e.Title,
		Price:        price,
		Currency:     currency,
		Url:          e.Url,
		ScrapedAt:    scrapedAt,
		Availability: e.Availability,
		Condition:    e.Condition,
	})
}

// build applies the checks shared by every constructor.
func build(s ProductSnapshot) (ProductSnapshot, error) {
	if s.ProductKey == "" {
		return ProductSnapshot{}, &ValidationError{Field: FieldProductKey, Reason: "missing"}
	}
	if s.Price.IsNegative() {
		return ProductSnapshot{}, &ValidationError{Field: FieldPrice, Reason: fmt.Sprintf("negative amount %s", s.Price.String())}
	}
	if s.Url != "" {
		link, err := url.Parse(s.Url)
		if err != nil {
			return ProductSnapshot{}, &ValidationError{Field: FieldUrl, Reason: "malformed", Err: err}
		}
		if !link.IsAbs() || link.Host == "" {
			return ProductSnapshot{}, &ValidationError{Field: FieldUrl, Reason: fmt.Sprintf("%q is not an absolute url", s.Url)}
		}
	}
	// drops the monotonic clock reading so that equality only
	// depends on the instant
	s.ScrapedAt = s.ScrapedAt.Round(0).In(timezone.Location)
	return s, nil
}

// FromMap reconstructs a snapshot from a loosely typed mapping, such as
// an object decoded from the persisted history. Unlike New, it requires
// scraped_at since a persisted observation without a time is not
// something that can be recovered.
func FromMap(m map[string]any) (ProductSnapshot, error) {
	var s ProductSnapshot
	var err error

	s.ProductKey, err = stringField(m, FieldProductKey)
	if err != nil {
		return ProductSnapshot{}, err
	}
	if s.ProductKey == "" {
		return ProductSnapshot{}, &ValidationError{Field: FieldProductKey, Reason: "missing"}
	}
	if s.Title, err = stringField(m, FieldTitle); err != nil {
		return ProductSnapshot{}, err
	}
	if s.Currency, err = stringField(m, FieldCurrency); err != nil {
		return ProductSnapshot{}, err
	}
	if s.Url, err = stringField(m, FieldUrl); err != nil {
		return ProductSnapshot{}, err
	}
	if s.Availability, err = stringField(m, FieldAvailability); err != nil {
		return ProductSnapshot{}, err
	}
	if s.Condition, err = stringField(m, FieldCondition); err != nil {
		return ProductSnapshot{}, err
	}

	s.Price, err = priceField(m)
	if err != nil {
		return ProductSnapshot{}, err
	}

	rawTime, err := stringField(m, FieldScrapedAt)
	if err != nil {
		return ProductSnapshot{}, err
	}
	if rawTime == "" {
		return ProductSnapshot{}, &ValidationError{Field: FieldScrapedAt, Reason: "missing"}
	}
	s.ScrapedAt, err = timezone.Parse(rawTime)
	if err != nil {
		return ProductSnapshot{}, &ValidationError{Field: FieldScrapedAt, Reason: "not an ISO-8601 timestamp", Err: err}
	}

	return build(s)
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: key, Reason: fmt.Sprintf("expected a string, got %T", v)}
	}
	return str, nil
}

func priceField(m map[string]any) (decimal.Decimal, error) {
	v, ok := m[FieldPrice]
	if !ok || v == nil {
		return decimal.Zero, nil
	}

	var amount decimal.Decimal
	var err error
	switch t := v.(type) {
	case json.Number:
		amount, err = decimal.NewFromString(t.String())
	case float64:
		amount = decimal.NewFromFloat(t)
	case int:
		amount = decimal.NewFromInt(int64(t))
	case int64:
		amount = decimal.NewFromInt(t)
	case decimal.Decimal:
		amount = t
	case string:
		// plain decimal text first so "1.099" stays 1.099 instead of
		// being read as a thousands separator
		amount, err = decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			amount, _, err = ParsePrice(t)
		}
	default:
		return decimal.Zero, &ValidationError{Field: FieldPrice, Reason: fmt.Sprintf("expected a number, got %T", v)}
	}
	if err != nil {
		return decimal.Zero, &ValidationError{Field: FieldPrice, Reason: "unparsable", Err: err}
	}
	return amount, nil
}

// PriceText renders the price as plain decimal text, keeping two
// fractional digits unless the amount needs more.
func (s ProductSnapshot) PriceText() string {
	if s.Price.Equal(s.Price.Round(2)) {
		return s.Price.StringFixed(2)
	}
	return s.Price.String()
}

func (s ProductSnapshot) ToMap() map[string]any {
	return map[string]any{
		FieldProductKey:   s.ProductKey,
		FieldTitle:        s.Title,
		FieldPrice:        json.Number(s.PriceText()),
		FieldCurrency:     s.Currency,
		FieldUrl:          s.Url,
		FieldScrapedAt:    timezone.Format(s.ScrapedAt),
		FieldAvailability: s.Availability,
		FieldCondition:    s.Condition,
	}
}

// Equal reports whether two snapshots describe the same observation
// field for field. Prices and times are compared by value, so 799 and
// 799.00 are equal, as are the same instant in two zones.
func (s ProductSnapshot) Equal(other ProductSnapshot) bool {
	return s.ProductKey == other.ProductKey &&
		s.Title == other.Title &&
		s.Price.Equal(other.Price) &&
		s.Currency == other.Currency &&
		s.Url == other.Url &&
		s.ScrapedAt.Equal(other.ScrapedAt) &&
		s.Availability == other.Availability &&
		s.Condition == other.Condition
}

type wireSnapshot struct {
	ProductKey   string      `json:"product_key"`
	Title        string      `json:"title"`
	Price        json.Number `json:"price"`
	Currency     string      `json:"currency"`
	Url          string      `json:"url"`
	ScrapedAt    string      `json:"scraped_at"`
	Availability string      `json:"availability"`
	Condition    string      `json:"condition"`
}

func (s ProductSnapshot) MarshalJSON() ([]byte, error) {
	var buff bytes.Buffer
	enc := json.NewEncoder(&buff)
	enc.SetEscapeHTML(false)
	err := enc.Encode(wireSnapshot{
		ProductKey:   s.ProductKey,
		Title:        s.Title,
		Price:        json.Number(s.PriceText()),
		Currency:     s.Currency,
		Url:          s.Url,
		ScrapedAt:    timezone.Format(s.ScrapedAt),
		Availability: s.Availability,
		Condition:    s.Condition,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buff.Bytes(), "\n"), nil
}

func (s *ProductSnapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	err := dec.Decode(&raw)
	if err != nil {
		return err
	}
	parsed, err := FromMap(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
