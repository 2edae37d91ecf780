package shopify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectWidget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   WidgetKind
		wantOK bool
	}{
		{name: "yotpo", body: `<div class="yotpo-widget-instance"></div>`, want: WidgetYotpo, wantOK: true},
		{name: "yotpo case insensitive", body: `<script src="//STATICW2.YOTPO.COM/x.js">`, want: WidgetYotpo, wantOK: true},
		{name: "judgeme", body: `<div class="jdgm-widget"></div>`, want: WidgetJudgeMe, wantOK: true},
		{name: "stamped", body: `<script src="https://cdn1.stamped.io/files/widget.min.js">`, want: WidgetStamped, wantOK: true},
		{name: "shopify native", body: `<div id="shopify-product-reviews"></div>`, want: WidgetShopify, wantOK: true},
		{name: "yotpo wins over judgeme", body: `jdgm-widget yotpo-widget`, want: WidgetYotpo, wantOK: true},
		{name: "shopify needs review marker", body: `<script src="https://cdn.shopify.com/x.js"></script>`},
		{name: "none", body: `<html><body>plain</body></html>`},
		{name: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := DetectWidget(tt.body)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   Credentials
		wantOK bool
	}{
		{
			name: "loader and long id",
			body: `<script src="https://cdn-widgetsrepository.yotpo.com/v1/loader/AbC123xyz?languageCode=en"></script>
				<script>var meta = {"product":{"id":"7234567890123","gid":"x"}};</script>`,
			want:   Credentials{AppKey: "AbC123xyz", ProductID: "7234567890123"},
			wantOK: true,
		},
		{
			name:   "loyalty loader wins",
			body:   `cdn-loyalty.yotpo.com/loader/first.js cdn-widgetsrepository.yotpo.com/v1/loader/second "productId":"42"`,
			want:   Credentials{AppKey: "first.js", ProductID: "42"},
			wantOK: true,
		},
		{
			name:   "prefers long product id",
			body:   `yotpo.com/loader/key1 data-product-id="77" "shopify_product_id":"9988776655"`,
			want:   Credentials{AppKey: "key1", ProductID: "9988776655"},
			wantOK: true,
		},
		{
			name:   "falls back to first short id",
			body:   `yotpo.com/v1/loader/key2 product_id: 55 data-product-id='66'`,
			want:   Credentials{AppKey: "key2", ProductID: "55"},
			wantOK: true,
		},
		{
			name: "missing app key",
			body: `"productId":"1234567890"`,
			want: Credentials{ProductID: "1234567890"},
		},
		{
			name: "missing product id",
			body: `yotpo.com/loader/key3`,
			want: Credentials{AppKey: "key3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractCredentials(tt.body)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
