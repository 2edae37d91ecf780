// Package main hosts the revcopy extraction service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, product extraction, review analysis, store info and
//     content generation. Requests are validated with validator/v10 and mapped onto the shopify.Extractor.
//   - Extraction: the product half comes from the storefront's .json data endpoint; the review half detects the
//     review widget on the product page (colly, optionally promoted to a chromedp render), pulls Yotpo widget
//     credentials and pages through the widget API behind a rate limiter and circuit breaker.
//   - Degradation: when the widget API is unusable the harvester substitutes synthetic reviews, clearly tagged
//     with a *_fallback source. Set REVCOPY_SYNTHETIC_ENABLED=false to return no reviews instead.
//   - Persistence & fanout: products and analyses go to Postgres when REVCOPY_DB_DSN is set, memory otherwise.
//     A product.extracted event is published to Pub/Sub when REVCOPY_PUBSUB_PROJECT_ID is set.
//
// Quick checklist:
//   - Run the server: go run ./cmd/revcopy -config config.yaml (or rely solely on REVCOPY_* env overrides).
//   - One-shot: go run ./cmd/revcopy -extract https://store.example/products/widget > widget.json
//   - Cloud Run: the server listens on PORT when set and drains on SIGTERM.
package main
