package shopify

import (
	"regexp"
	"strings"
)

// WidgetKind names a third-party review system embedded in a storefront page.
type WidgetKind string

// Known review widgets, in detection priority order.
const (
	WidgetYotpo   WidgetKind = "yotpo"
	WidgetJudgeMe WidgetKind = "judgeme"
	WidgetStamped WidgetKind = "stamped"
	WidgetShopify WidgetKind = "shopify"
)

// widgetRule matches when every marker in all and at least one in any occur.
type widgetRule struct {
	kind WidgetKind
	all  []string
	any  []string
}

func (r widgetRule) match(lower string) bool {
	for _, m := range r.all {
		if !strings.Contains(lower, m) {
			return false
		}
	}
	for _, m := range r.any {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return len(r.any) == 0
}

// Markers are matched against the lowercased page. First matching rule wins.
var widgetRules = []widgetRule{
	{kind: WidgetYotpo, any: []string{"yotpo.com", "yotpo-widget", "data-yotpo"}},
	{kind: WidgetJudgeMe, any: []string{"judge.me", "jdgm-"}},
	{kind: WidgetStamped, any: []string{"stamped.io", "stamped-main-widget"}},
	{kind: WidgetShopify, all: []string{"shopify"}, any: []string{"review", "rating"}},
}

// DetectWidget reports which review widget, if any, the page embeds.
func DetectWidget(body string) (WidgetKind, bool) {
	if body == "" {
		return "", false
	}
	lower := strings.ToLower(body)
	for _, rule := range widgetRules {
		if rule.match(lower) {
			return rule.kind, true
		}
	}
	return "", false
}

// Credentials identify a product inside the Yotpo reviews API.
type Credentials struct {
	AppKey    string
	ProductID string
}

// Complete reports whether both parts were found.
func (c Credentials) Complete() bool {
	return c.AppKey != "" && c.ProductID != ""
}

var appKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cdn-loyalty\.yotpo\.com/loader/([^"?\s]+)`),
	regexp.MustCompile(`(?i)cdn-widgetsrepository\.yotpo\.com/v1/loader/([^"?\s]+)`),
	regexp.MustCompile(`(?i)yotpo\.com/loader/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`(?i)yotpo\.com/v1/loader/([A-Za-z0-9_-]+)`),
}

var productIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"product":\{"id":"(\d+)"`),
	regexp.MustCompile(`(?i)"productId":"(\d+)"`),
	regexp.MustCompile(`(?i)"id":"(\d{10,})"`),
	regexp.MustCompile(`(?i)product_id["\s]*:["\s]*(\d+)`),
	regexp.MustCompile(`(?i)data-product-id["\s]*=["\s]*["'](\d+)["']`),
	regexp.MustCompile(`(?i)"shopify_product_id":"(\d+)"`),
}

// Shopify product ids are long; shorter numeric hits are usually variant
// positions or prices.
const minProductIDLen = 10

// ExtractCredentials pulls the Yotpo app key and Shopify product id out of a
// page. ok is true only when both were found.
func ExtractCredentials(body string) (Credentials, bool) {
	creds := Credentials{
		AppKey:    extractAppKey(body),
		ProductID: extractProductID(body),
	}
	return creds, creds.Complete()
}

func extractAppKey(body string) string {
	for _, re := range appKeyPatterns {
		if m := re.FindStringSubmatch(body); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

func extractProductID(body string) string {
	seen := make(map[string]struct{})
	var candidates []string
	for _, re := range productIDPatterns {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if len(m) < 2 || m[1] == "" {
				continue
			}
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			candidates = append(candidates, m[1])
		}
	}
	for _, c := range candidates {
		if len(c) >= minProductIDLen {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
