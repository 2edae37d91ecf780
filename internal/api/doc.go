// Package api hosts the HTTP server, middleware, and REST handlers.
// Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/products/extract and /v1/products/analyze for on-demand
//     storefront extraction, optionally persisted.
//   - GET /v1/products/{product_id} for stored products.
//   - GET /v1/stores/info for storefront metadata.
//   - POST /v1/content/generate for AI copy generation.
package api
