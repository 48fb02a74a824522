package models

// PriceBinCount is one bar of the price histogram. Lower is inclusive,
// Upper exclusive.
type PriceBinCount struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AnalyticsReport is everything the analytics view draws.
type AnalyticsReport struct {
	PriceHistogram []PriceBinCount `json:"price_histogram"`
	TopCategories  []CategoryCount `json:"top_categories"`
	ProductCount   int             `json:"product_count"`
}

type InfoEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
