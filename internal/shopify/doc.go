// Package shopify extracts product snapshots and rating-stratified review
// samples from Shopify storefronts.
//
// An Extractor fetches the product's .json data endpoint and, in parallel, the
// product page HTML. The page is scanned for a known review widget; when the
// widget exposes a public API (Yotpo), a Harvester pages through it collecting
// positive and negative reviews up to fixed targets. When that API cannot be
// reached the Harvester substitutes synthetic reviews tagged with a fallback
// source, unless it was built without a generator.
package shopify
