// Package crawler defines the product, review, and fetch types shared by the
// page fetchers, the Shopify extraction pipeline, and the storage and API
// layers, together with the error kinds they use to signal failures.
package crawler
