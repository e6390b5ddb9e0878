package gelbeseiten

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("scrapers/gelbeseiten")
