package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans created by this module.
const TracerName = "github.com/mmynk/groupsplit"

// Tracer returns the module tracer from the global provider. Without an
// installed SDK provider the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
