package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

// formatHeaders renders one "Key: Value" line per value, keys sorted so
// two dumps of the same exchange diff cleanly.
func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		for _, v := range headers[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

// formatRequestBody re-reads the request body through GetBody. Requests
// without a body yield "", resty installs a GetBody that returns a nil
// reader on those.
func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<failed to get request body: %s>", err)
	}
	if body == nil {
		return ""
	}
	defer body.Close()

	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<failed to read request body: %s>", err)
	}
	return string(contents)
}

// responseUrl is the url that finally answered, after redirects.
func responseUrl(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

func writeSection(out *strings.Builder, contents string) {
	if contents == "" {
		return
	}
	out.WriteString("\n")
	out.WriteString(contents)
	out.WriteString("\n")
}

// formatHttpMessage renders a request/response pair in a plain text form
// close to the wire format, empty sections are left out.
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n", res.Request.Method, res.Request.URL)
	if raw := res.Request.RawRequest; raw != nil {
		writeSection(&out, formatHeaders(raw.Header))
		writeSection(&out, formatRequestBody(raw))
	}

	out.WriteString("\n---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%d %s\n", res.StatusCode(), responseUrl(res))
	writeSection(&out, formatHeaders(res.Header()))
	writeSection(&out, res.String())

	return out.String()
}
