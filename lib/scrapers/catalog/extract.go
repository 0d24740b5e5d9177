package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"pricemonitor/lib/htmlutil"
	"pricemonitor/lib/snapshot"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ParseError means the page no longer has the shape the extractor
// expects. It is kept apart from an empty result so that a catalog
// with no products is not confused with a catalog that changed layout.
type ParseError struct {
	Url string
	// index of the offending entry in document order, -1 when the
	// problem is with the page as a whole
	Entry  int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: %s", e.Url, e.Reason)
	if e.Entry >= 0 {
		msg = fmt.Sprintf("parse %s: entry %d: %s", e.Url, e.Entry, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Selectors describe where each field lives in the catalog markup. All
// of them are goquery (cascadia) selectors, the *Attrs fields list
// attribute names tried in order on the entry element.
type Selectors struct {
	// the element wrapping the whole listing
	Catalog string `json:"catalog"`
	// one element per product, relative to Catalog
	Entry string `json:"entry"`
	// the rest are relative to Entry
	Title        string `json:"title"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	Link         string `json:"link"`
	Availability string `json:"availability"`
	Condition    string `json:"condition"`

	KeyAttrs          []string `json:"key_attrs"`
	TitleAttrs        []string `json:"title_attrs"`
	PriceAttrs        []string `json:"price_attrs"`
	CurrencyAttrs     []string `json:"currency_attrs"`
	AvailabilityAttrs []string `json:"availability_attrs"`
	ConditionAttrs    []string `json:"condition_attrs"`

	// used when neither the markup nor the price text names a currency
	DefaultCurrency string `json:"default_currency"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Catalog:      "[data-catalog], #catalog, .catalog, #products, .products",
		Entry:        "[data-product-id], [data-sku], .product-card, .product",
		Title:        ".product-title, .product-name, .title, .name, h2, h3",
		Price:        ".product-price, .price",
		Currency:     ".currency",
		Link:         "a[href]",
		Availability: ".availability, .stock, [data-availability]",
		Condition:    ".condition, [data-condition]",

		KeyAttrs:          []string{"data-product-id", "data-product-key", "data-sku", "data-id", "id"},
		TitleAttrs:        []string{"data-title", "data-name"},
		PriceAttrs:        []string{"data-price"},
		CurrencyAttrs:     []string{"data-currency"},
		AvailabilityAttrs: []string{"data-availability", "data-stock"},
		ConditionAttrs:    []string{"data-condition"},

		DefaultCurrency: "USD",
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify("iPhone 15 Pro, 256GB") == "iphone-15-pro-256gb"
func slugify(s string) string {
	s = strings.ToLower(htmlutil.CleanText(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func firstAttr(sel *goquery.Selection, attrs []string) string {
	for _, name := range attrs {
		if v := strings.TrimSpace(sel.AttrOr(name, "")); v != "" {
			return v
		}
	}
	return ""
}

// field reads a value from the entry attributes first and falls back to
// the text of the first element matching `selector` inside the entry.
func field(entry *goquery.Selection, attrs []string, selector string) string {
	if v := firstAttr(entry, attrs); v != "" {
		return v
	}
	if selector == "" {
		return ""
	}
	found := entry.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	if v := firstAttr(found, attrs); v != "" {
		return v
	}
	return htmlutil.SelectionText(found)
}

// Extract turns a parsed catalog page into snapshots in document order,
// every one stamped with `now`.
func Extract(ctx context.Context, doc *goquery.Document, base *url.URL, now time.Time, sel Selectors) ([]snapshot.ProductSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	pageUrl := base.String()

	root := doc.Selection
	catalog := doc.Find(sel.Catalog).First()
	if catalog.Length() > 0 {
		root = catalog
	}
	entries := root.Find(sel.Entry)
	// nested matches (ex. a .product inside a [data-product-id]) would be
	// counted twice, only outermost entries are kept
	entries = entries.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsUntilSelection(root).Filter(sel.Entry).Length() == 0
	})

	span.SetAttributes(
		attribute.Bool("catalog_found", catalog.Length() > 0),
		attribute.Int("entries", entries.Length()),
	)

	if catalog.Length() == 0 && entries.Length() == 0 {
		err := &ParseError{
			Url:    pageUrl,
			Entry:  -1,
			Reason: fmt.Sprintf("neither a catalog (%s) nor product entries (%s) were found", sel.Catalog, sel.Entry),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := make([]snapshot.ProductSnapshot, 0, entries.Length())
	var parseErr error
	entries.EachWithBreak(func(i int, entry *goquery.Selection) bool {
		title := field(entry, sel.TitleAttrs, sel.Title)

		var link string
		if goquery.NodeName(entry) == "a" {
			if anchors := htmlutil.GetAnchors(ctx, base, entry); len(anchors) > 0 {
				link = anchors[0].Href
			}
		} else if sel.Link != "" {
			anchors := htmlutil.GetAnchors(ctx, base, entry.Find(sel.Link))
			if len(anchors) > 0 {
				link = anchors[0].Href
				if title == "" {
					title = anchors[0].Name
				}
			}
		}

		key := firstAttr(entry, sel.KeyAttrs)
		if key == "" {
			key = slugify(title)
		}
		if link == "" && key != "" {
			fragment := *base
			fragment.Fragment = key
			link = fragment.String()
		}

		price := field(entry, sel.PriceAttrs, sel.Price)
		if price == "" {
			slog.WarnContext(ctx, "catalog entry has no price", "entry", i, "product_key", key)
		}

		currency := strings.ToUpper(field(entry, sel.CurrencyAttrs, sel.Currency))
		if currency == "" {
			_, inferred, _ := snapshot.ParsePrice(price)
			if inferred == "" {
				currency = sel.DefaultCurrency
			}
		}

		s, err := snapshot.New(snapshot.Extracted{
			ProductKey:   key,
			Title:        title,
			Price:        price,
			Currency:     currency,
			Url:          link,
			ScrapedAt:    now,
			Availability: field(entry, sel.AvailabilityAttrs, sel.Availability),
			Condition:    field(entry, sel.ConditionAttrs, sel.Condition),
		})
		if err != nil {
			parseErr = &ParseError{Url: pageUrl, Entry: i, Reason: "invalid product entry", Err: err}
			return false
		}
		result = append(result, s)
		return true
	})
	if parseErr != nil {
		span.RecordError(parseErr)
		span.SetStatus(codes.Error, "invalid product entry")
		return nil, parseErr
	}

	return result, nil
}
