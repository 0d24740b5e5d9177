package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"pricemonitor/lib/snapshot"
	"pricemonitor/lib/timezone"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseUrl = "https://andres-torrez.github.io/iphone-catalog/"

// NormalizeBaseUrl parses `raw` and makes sure the path ends with a
// slash so relative product links resolve inside the catalog.
func NormalizeBaseUrl(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty base url")
	}
	link, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !link.IsAbs() || link.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", raw)
	}
	if !strings.HasSuffix(link.Path, "/") {
		link.Path += "/"
	}
	return link, nil
}

type SourceOptions struct {
	BaseUrl string
	// fields left empty fall back to DefaultSelectors
	Selectors Selectors
	// defaults to timezone.Now
	Now func() time.Time
}

// Source is a single catalog page.
type Source struct {
	client    *Client
	baseUrl   *url.URL
	selectors Selectors
	now       func() time.Time
}

func NewSource(client *Client, opts SourceOptions) (*Source, error) {
	baseUrl, err := NormalizeBaseUrl(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	selectors := DefaultSelectors()
	err = mergo.Merge(&selectors, opts.Selectors, mergo.WithOverride)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = timezone.Now
	}

	return &Source{
		client:    client,
		baseUrl:   baseUrl,
		selectors: selectors,
		now:       now,
	}, nil
}

func (s *Source) BaseUrl() *url.URL {
	return s.baseUrl
}

// Fetch retrieves the catalog page and returns the products it lists,
// all sharing one timestamp taken when the page was received.
func (s *Source) Fetch(ctx context.Context) ([]snapshot.ProductSnapshot, error) {
	ctx, span := tracer.Start(ctx, "source:Fetch")
	defer span.End()

	link := s.baseUrl.String()
	span.SetAttributes(attribute.String("base_url", link))

	body, err := s.client.GetHTML(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch catalog")
		return nil, err
	}
	now := s.now()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, &ParseError{Url: link, Entry: -1, Reason: "unreadable html", Err: err}
	}

	snapshots, err := Extract(ctx, doc, s.baseUrl, now, s.selectors)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "fetched catalog", "url", link, "products", len(snapshots), "scraped_at", timezone.Format(now))
	return snapshots, nil
}
