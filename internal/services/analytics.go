package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"furnishai-web/internal/models"
)

// PriceBins are the histogram boundaries. Each bin is [PriceBins[i], PriceBins[i+1]).
var PriceBins = []float64{0, 50, 100, 200, 500, 1000}

const (
	// Products priced at or above this are left out of the histogram.
	priceCeiling = 1000

	TopCategoryLimit = 10

	AnalyticsErrorMessage = "Could not load analytics data. Please ensure the backend server is running."
)

// ProductSource lists the catalogue the analytics view aggregates.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type AnalyticsService struct {
	source ProductSource
	log    logrus.FieldLogger
}

func NewAnalyticsService(source ProductSource, log logrus.FieldLogger) *AnalyticsService {
	return &AnalyticsService{source: source, log: log}
}

// Report fetches the catalogue once and aggregates it. Any fetch failure is
// returned as *UnavailableError; bad individual records never fail it.
func (s *AnalyticsService) Report(ctx context.Context) (*models.AnalyticsReport, error) {
	products, err := s.source.ListProducts(ctx)
	if err != nil {
		s.log.WithField("error", err).Error("failed to fetch analytics data")
		return nil, &UnavailableError{Message: AnalyticsErrorMessage, Cause: err}
	}

	report := BuildReport(products)
	s.log.WithFields(logrus.Fields{
		"products":   report.ProductCount,
		"categories": len(report.TopCategories),
	}).Debug("analytics report built")
	return report, nil
}

func BuildReport(products []models.Product) *models.AnalyticsReport {
	return &models.AnalyticsReport{
		PriceHistogram: PriceHistogram(products),
		TopCategories:  TopCategories(products, TopCategoryLimit),
		ProductCount:   len(products),
	}
}

// PriceHistogram counts products per price bin. Prices that cannot be read
// and prices at or above the ceiling are discarded before binning.
func PriceHistogram(products []models.Product) []models.PriceBinCount {
	bins := make([]models.PriceBinCount, len(PriceBins)-1)
	for i := range bins {
		lo, hi := PriceBins[i], PriceBins[i+1]
		bins[i] = models.PriceBinCount{
			Label: fmt.Sprintf("$%s - $%s", formatBound(lo), formatBound(hi)),
			Lower: lo,
			Upper: hi,
		}
	}

	for _, p := range products {
		price, ok := ParsePrice(p.Price)
		if !ok || price >= priceCeiling {
			continue
		}
		for i := range bins {
			if price >= bins[i].Lower && price < bins[i].Upper {
				bins[i].Count++
				break
			}
		}
	}

	return bins
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePrice strips "$" and "," and reads the leading number the way a
// browser's parseFloat does: "12.5 USD" is 12.5, "abc" is not a price.
func ParsePrice(raw string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	return parseFloatPrefix(cleaned)
}

func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, isBrowserSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	if strings.HasPrefix(s[end:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}

	// An exponent only counts when at least one digit follows it.
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ExtractCategories is a best-effort reading of a product's categories.
// Arrays are used as they are. Strings are legacy python list literals:
// single quotes are swapped for double quotes and the result parsed as
// JSON. ok is false when nothing usable could be read.
func ExtractCategories(raw json.RawMessage) (labels []string, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	var items []interface{}
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, false
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(strings.ReplaceAll(text, "'", `"`)), &parsed); err != nil {
			return nil, false
		}
		list, isList := parsed.([]interface{})
		if !isList {
			return nil, false
		}
		items = list
	default:
		return nil, false
	}

	labels = make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			labels = append(labels, v)
		case []interface{}, map[string]interface{}:
			// nested structures are not labels
		default:
			text, err := json.Marshal(v)
			if err != nil {
				continue
			}
			labels = append(labels, string(text))
		}
	}
	return labels, true
}

// TopCategories counts every label across products and returns the limit
// most frequent, highest first. Equal counts keep first-seen order.
func TopCategories(products []models.Product, limit int) []models.CategoryCount {
	counts := []models.CategoryCount{}
	index := make(map[string]int)

	for _, p := range products {
		labels, ok := ExtractCategories(p.Categories)
		if !ok {
			continue
		}
		for _, label := range labels {
			if i, seen := index[label]; seen {
				counts[i].Count++
				continue
			}
			index[label] = len(counts)
			counts = append(counts, models.CategoryCount{Label: label, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if limit >= 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
