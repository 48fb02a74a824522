package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"

	"furnishai-web/internal/models"
)

func pricedProducts(prices ...string) []models.Product {
	out := make([]models.Product, len(prices))
	for i, p := range prices {
		out[i] = models.Product{UniqID: fmt.Sprint(i), Price: p}
	}
	return out
}

func categorized(raws ...string) []models.Product {
	out := make([]models.Product, len(raws))
	for i, raw := range raws {
		out[i] = models.Product{UniqID: fmt.Sprint(i)}
		if raw != "" {
			out[i].Categories = json.RawMessage(raw)
		}
	}
	return out
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$45.00", 45, true},
		{"$1,299.99", 1299.99, true},
		{"999", 999, true},
		{"  $12.5 USD", 12.5, true},
		{"12abc", 12, true},
		{".5", 0.5, true},
		{"-5", -5, true},
		{"1e3", 1000, true},
		{"2e", 2, true},
		{"abc", 0, false},
		{"", 0, false},
		{"$", 0, false},
		{"-", 0, false},
		{".", 0, false},
		{"\uFEFF7", 7, true},
		{"\u00A0\u20287", 7, true},
		{"\u3000$8", 8, true},
		{"\u0085 7", 0, false},
		{"\u200B7", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParsePrice(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParsePrice_Infinity(t *testing.T) {
	got, ok := ParsePrice("Infinity")
	if !ok || !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf, got %v %v", got, ok)
	}
}

func TestPriceHistogram_ReferenceVector(t *testing.T) {
	bins := PriceHistogram(pricedProducts("$45.00", "$999", "$1000", "abc", "$50"))

	wantCounts := []int{1, 1, 0, 0, 1}
	wantLabels := []string{"$0 - $50", "$50 - $100", "$100 - $200", "$200 - $500", "$500 - $1000"}

	if len(bins) != len(wantCounts) {
		t.Fatalf("expected %d bins, got %d", len(wantCounts), len(bins))
	}
	for i := range bins {
		if bins[i].Count != wantCounts[i] {
			t.Errorf("bin %d (%s): count %d, want %d", i, bins[i].Label, bins[i].Count, wantCounts[i])
		}
		if bins[i].Label != wantLabels[i] {
			t.Errorf("bin %d: label %q, want %q", i, bins[i].Label, wantLabels[i])
		}
	}
}

func TestPriceHistogram_Boundaries(t *testing.T) {
	bins := PriceHistogram(pricedProducts("0", "49.99", "100", "199.999", "200", "500", "999.99", "1000.00", "-1", "Infinity", ""))

	wantCounts := []int{2, 0, 2, 1, 2}
	for i, want := range wantCounts {
		if bins[i].Count != want {
			t.Errorf("bin %s: count %d, want %d", bins[i].Label, bins[i].Count, want)
		}
	}
}

func TestExtractCategories(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   []string
		wantOK bool
	}{
		{"array", `["A","B"]`, []string{"A", "B"}, true},
		{"python literal", `"['B','C']"`, []string{"B", "C"}, true},
		{"json string", `"[\"X\"]"`, []string{"X"}, true},
		{"scalar elements", `[1, true, null, "Z"]`, []string{"1", "true", "null", "Z"}, true},
		{"nested ignored", `[["A"], {"k":"v"}, "B"]`, []string{"B"}, true},
		{"apostrophe breaks parse", `"['Kid's Room']"`, nil, false},
		{"string not a list", `"'Sofa'"`, nil, false},
		{"garbage string", `"not a list"`, nil, false},
		{"number", `42`, nil, false},
		{"missing", ``, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractCategories(json.RawMessage(tc.raw))
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestTopCategories_ReferenceVector(t *testing.T) {
	top := TopCategories(categorized(`["A","B"]`, `["A"]`, `"['B','C']"`), TopCategoryLimit)

	want := []models.CategoryCount{{Label: "A", Count: 2}, {Label: "B", Count: 2}, {Label: "C", Count: 1}}
	if len(top) != len(want) {
		t.Fatalf("got %+v, want %+v", top, want)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Fatalf("position %d: got %+v, want %+v", i, top[i], want[i])
		}
	}
}

func TestTopCategories_SkipsBadRecordsSilently(t *testing.T) {
	top := TopCategories(categorized(`"['broken"`, ``, `["Beds"]`, `null`), TopCategoryLimit)

	if len(top) != 1 || top[0].Label != "Beds" || top[0].Count != 1 {
		t.Fatalf("unexpected result %+v", top)
	}
}

func TestTopCategories_TruncatesToLimitInDescendingOrder(t *testing.T) {
	var raws []string
	// label Lk appears k times, k = 1..12
	for k := 1; k <= 12; k++ {
		for n := 0; n < k; n++ {
			raws = append(raws, fmt.Sprintf(`["L%d"]`, k))
		}
	}

	top := TopCategories(categorized(raws...), TopCategoryLimit)
	if len(top) != TopCategoryLimit {
		t.Fatalf("expected %d categories, got %d", TopCategoryLimit, len(top))
	}
	for i, c := range top {
		want := fmt.Sprintf("L%d", 12-i)
		if c.Label != want || c.Count != 12-i {
			t.Fatalf("position %d: got %+v, want %s x%d", i, c, want, 12-i)
		}
	}
}

func TestTopCategories_TiesKeepFirstSeenOrder(t *testing.T) {
	top := TopCategories(categorized(`["Z","M"]`, `["A"]`, `["M","A","Z"]`), TopCategoryLimit)

	want := []string{"Z", "M", "A"}
	for i, label := range want {
		if top[i].Label != label || top[i].Count != 2 {
			t.Fatalf("position %d: got %+v, want %s x2", i, top[i], label)
		}
	}
}

func TestTopCategories_EmptyIsNotNil(t *testing.T) {
	top := TopCategories(nil, TopCategoryLimit)
	if top == nil || len(top) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", top)
	}
}

type stubSource struct {
	products []models.Product
	err      error
}

func (s *stubSource) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.products, s.err
}

func TestAnalyticsService_Report(t *testing.T) {
	svc := NewAnalyticsService(&stubSource{products: []models.Product{
		{Price: "$45.00", Categories: json.RawMessage(`["A","B"]`)},
		{Price: "$60", Categories: json.RawMessage(`"['A']"`)},
	}}, quietLogger())

	report, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ProductCount != 2 {
		t.Errorf("expected 2 products, got %d", report.ProductCount)
	}
	if report.PriceHistogram[0].Count != 1 || report.PriceHistogram[1].Count != 1 {
		t.Errorf("unexpected histogram %+v", report.PriceHistogram)
	}
	if report.TopCategories[0].Label != "A" || report.TopCategories[0].Count != 2 {
		t.Errorf("unexpected categories %+v", report.TopCategories)
	}
}

func TestAnalyticsService_ReportFailure(t *testing.T) {
	cause := &StatusError{Method: "GET", Path: "/analytics", StatusCode: 404}
	svc := NewAnalyticsService(&stubSource{err: cause}, quietLogger())

	report, err := svc.Report(context.Background())
	if report != nil {
		t.Fatal("expected no report on failure")
	}
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if unavailable.Message != AnalyticsErrorMessage {
		t.Errorf("unexpected message %q", unavailable.Message)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Errorf("expected the cause to stay reachable")
	}
}
