package catalog

import (
	"context"
	"fmt"
	"net/http"
	"pricemonitor/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultTimeout = 20 * time.Second
const DefaultUserAgent = "pricemonitor/1.0 (+https://github.com/andres-torrez/iphone-catalog)"

// FetchError is returned when the catalog page could not be retrieved,
// either because the request failed (timeout, dns, connection) or
// because the server answered with a non 2xx status.
type FetchError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s", e.Url, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	// zero means DefaultTimeout
	Timeout   time.Duration
	UserAgent string
	// wraps the transport with cloudflare's browser fingerprint bypass
	CloudflareBypass bool
}

type Client struct {
	Http *resty.Client
}

func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New()
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{Http: client}
}

// GetHTML performs a single GET and returns the body as text.
func (c *Client) GetHTML(ctx context.Context, link string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GetHTML")
	defer span.End()

	span.SetAttributes(attribute.String("url", link))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return "", &FetchError{Url: link, Err: err}
	}
	if res.StatusCode() < http.StatusOK || res.StatusCode() >= http.StatusMultipleChoices {
		span.SetStatus(codes.Error, fmt.Sprintf("unexpected status %d", res.StatusCode()))
		return "", &FetchError{Url: link, StatusCode: res.StatusCode()}
	}

	return res.String(), nil
}
