package pricehistory

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("pricemonitor.services.pricehistory")
