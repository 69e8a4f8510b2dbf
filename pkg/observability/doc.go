/*
Package observability exposes lifecycle activity as Prometheus metrics.

Metrics are fed by decorating a journal with Instrument, so a single wiring
point captures every settled transition — including unload vetoes, which by
design never appear on the did-unload event topic.
*/
package observability
