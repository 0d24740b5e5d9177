package catalog

import (
	"pricemonitor/lib/restyutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("pricemonitor.lib.scrapers.catalog")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes every client created afterwards dump
// its http messages to `out` while debug logging is enabled.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
