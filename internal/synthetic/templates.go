package synthetic

// Template is one canned review the generator cycles through.
type Template struct {
	Rating   int
	Title    string
	Content  string
	Author   string
	Verified bool
	Helpful  int
}

// Pools groups the template sets used for generic and rating-targeted output.
type Pools struct {
	Generic  []Template
	Positive []Template
	Negative []Template
}

// DefaultPools returns the built-in template sets.
func DefaultPools() Pools {
	return Pools{
		Generic:  append([]Template(nil), genericTemplates...),
		Positive: append([]Template(nil), positiveTemplates...),
		Negative: append([]Template(nil), negativeTemplates...),
	}
}

var genericTemplates = []Template{
	{5, "Excellent product!", "Really happy with this purchase. Great quality and fast shipping. The product exceeded my expectations and I would definitely recommend it to others.", "Sarah M.", true, 12},
	{4, "Good value for money", "Product works as expected. Minor issues with packaging but overall satisfied. Quick delivery and responsive customer service.", "John D.", true, 8},
	{5, "Perfect!", "Exactly what I was looking for. Will definitely order again. Amazing quality and the price point is very reasonable.", "Emily R.", false, 15},
	{4, "Recommended", "High quality product with excellent customer service. Minor delivery delay but worth the wait. Very satisfied with the purchase.", "Michael K.", true, 6},
	{5, "Love it!", "This product is amazing! Better than expected quality and the design is beautiful. Already ordered another one as a gift.", "Jessica L.", true, 9},
	{3, "Average product", "It's okay, nothing special but does the job. Could be improved in some areas but overall acceptable for the price.", "David W.", true, 4},
	{5, "Fantastic quality", "Impressed with the build quality and attention to detail. Fast shipping and well packaged. Highly recommend this seller.", "Lisa T.", true, 11},
	{4, "Good purchase", "Happy with this purchase. Good quality product and reasonable price. Will consider buying from this brand again.", "Robert S.", true, 7},
	{5, "Exceeded expectations", "This product is even better than described. The quality is outstanding and the customer service was top-notch. Highly recommended!", "Amanda C.", true, 13},
	{4, "Pretty good", "Nice product with good features. Some minor issues but nothing major. Good value for the money and would purchase again.", "Mark J.", false, 5},
	{5, "Outstanding!", "Absolutely love this product! The quality is superb and it arrived quickly. Perfect for what I needed it for. Five stars!", "Rachel B.", true, 16},
	{4, "Solid product", "Well made and functional. Arrived on time and as described. Good customer support when I had questions. Recommended.", "Chris H.", true, 8},
	{5, "Amazing quality!", "Best purchase I've made in a while. The quality is exceptional and the price is very fair. Will definitely be a repeat customer.", "Nicole P.", true, 14},
	{3, "It's okay", "Product is decent but not exceptional. Does what it's supposed to do but there are probably better options available. Average quality.", "Steve M.", true, 3},
	{4, "Happy with purchase", "Good product that meets my needs. Nice packaging and arrived quickly. Would recommend to others looking for similar products.", "Karen L.", true, 10},
}

var positiveTemplates = []Template{
	{5, "Absolutely amazing!", "This product exceeded all my expectations! The quality is outstanding and it works perfectly. I would definitely recommend this to anyone looking for a great product.", "Jessica L.", true, 18},
	{5, "Perfect product!", "Exactly what I was looking for. The quality is excellent and the price is very reasonable. Fast shipping and great packaging. Will definitely buy again!", "Michael R.", true, 22},
	{4, "Very good quality", "Really happy with this purchase. Good quality product that does exactly what it's supposed to do. Minor packaging issues but overall very satisfied.", "Sarah M.", true, 14},
	{5, "Highly recommend!", "Best purchase I've made in a while! The product is exactly as described and the quality is fantastic. Customer service was also very helpful.", "David K.", true, 25},
	{4, "Great value", "Good product for the price. Works well and arrived quickly. Would definitely consider buying from this brand again in the future.", "Emily T.", false, 11},
}

var negativeTemplates = []Template{
	{1, "Very disappointed", "Product broke after just a few days of use. Poor quality materials and doesn't work as advertised. Would not recommend and will be returning.", "John D.", true, 8},
	{2, "Not as expected", "The product is smaller than I expected and the quality is quite poor. It works but feels very cheap. For this price, I expected much better.", "Lisa W.", true, 12},
	{1, "Waste of money", "Completely useless product. Doesn't work at all and customer service is unresponsive. Save your money and buy something else.", "Robert P.", true, 15},
	{2, "Poor quality", "The product feels very cheap and flimsy. It works but I don't think it will last long. Also took much longer to arrive than expected.", "Amanda C.", false, 6},
	{1, "Terrible experience", "Product arrived damaged and doesn't work properly. Tried to contact customer service but no response. Very disappointing purchase.", "Mark H.", true, 9},
}
