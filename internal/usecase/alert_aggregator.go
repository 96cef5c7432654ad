package usecase

import (
	"log/slog"
	"slices"

	"github.com/competitiveedge/engine/internal/domain"
)

// priceKeys are the history data keys holding a price; the last one present wins
var priceKeys = []string{"price", "Price", "PRICE"}

// alertOrder fixes the order labels are reported in
var alertOrder = []domain.AlertLabel{
	domain.AlertPriceDrop,
	domain.AlertSpecDisadvantage,
	domain.AlertPriceIncrease,
}

// AlertAggregator rolls per-listing comparisons and price history up into
// dashboard counts and per-listing alerts
type AlertAggregator struct {
	logger *slog.Logger
}

// NewAlertAggregator creates an aggregator
func NewAlertAggregator(logger *slog.Logger) *AlertAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertAggregator{logger: logger}
}

// Aggregate classifies every listing's alerts. Percentages are relative to
// the number of distinct listings in comparisons; price drops are reported as
// a negative percentage.
func (a *AlertAggregator) Aggregate(comparisons []domain.ListingComparison, history []domain.PriceHistoryEntry) *domain.AlertSummary {
	labels := make(map[string]map[domain.AlertLabel]bool)
	add := func(listingID string, label domain.AlertLabel) {
		if labels[listingID] == nil {
			labels[listingID] = make(map[domain.AlertLabel]bool)
		}
		labels[listingID][label] = true
	}

	compared := make(map[string]bool)
	for _, lc := range comparisons {
		compared[lc.ListingID] = true
		if labels[lc.ListingID] == nil {
			labels[lc.ListingID] = make(map[domain.AlertLabel]bool)
		}

		for name, fc := range lc.Comparison.Fields {
			switch fc.Alert {
			case domain.AlertRed:
				if fc.PriceField || domain.IsPriceName(name) {
					add(lc.ListingID, domain.AlertPriceDrop)
				} else {
					add(lc.ListingID, domain.AlertSpecDisadvantage)
				}
			case domain.AlertYellow:
				add(lc.ListingID, domain.AlertSpecDisadvantage)
			}
		}
		for _, mc := range lc.Comparison.Metrics {
			if mc.Alert != domain.AlertNone {
				add(lc.ListingID, domain.AlertSpecDisadvantage)
			}
		}
	}

	for listingID, trend := range a.priceTrends(history) {
		add(listingID, trend)
	}

	counts := make(map[domain.AlertLabel]int)
	for _, set := range labels {
		for label := range set {
			counts[label]++
		}
	}

	total := len(compared)
	percent := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100
	}

	summary := &domain.AlertSummary{
		Summary: domain.DashboardSummary{
			PriceDrops: domain.CategorySummary{
				Count:            counts[domain.AlertPriceDrop],
				PercentageChange: negate(percent(counts[domain.AlertPriceDrop])),
			},
			SpecDisadvantages: domain.CategorySummary{
				Count:            counts[domain.AlertSpecDisadvantage],
				PercentageChange: percent(counts[domain.AlertSpecDisadvantage]),
			},
			PriceIncreases: domain.CategorySummary{
				Count:            counts[domain.AlertPriceIncrease],
				PercentageChange: percent(counts[domain.AlertPriceIncrease]),
			},
		},
		ListingAlerts: make([]domain.ListingAlert, 0, len(compared)),
	}

	ids := make([]string, 0, len(compared))
	for id := range compared {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		alert := domain.ListingAlert{ListingID: id, Alerts: []domain.AlertLabel{}, Severity: domain.SeverityLow}
		for _, label := range alertOrder {
			if labels[id][label] {
				alert.Alerts = append(alert.Alerts, label)
			}
		}
		alert.Severity = severity(labels[id])
		summary.ListingAlerts = append(summary.ListingAlerts, alert)
	}

	return summary
}

// priceTrends compares the first and last recorded price of each listing with
// at least two history points
func (a *AlertAggregator) priceTrends(history []domain.PriceHistoryEntry) map[string]domain.AlertLabel {
	byListing := make(map[string][]domain.PriceHistoryEntry)
	for _, entry := range history {
		if entry.ListingID == "" {
			continue
		}
		byListing[entry.ListingID] = append(byListing[entry.ListingID], entry)
	}

	trends := make(map[string]domain.AlertLabel)
	for id, entries := range byListing {
		if len(entries) < 2 {
			continue
		}
		slices.SortStableFunc(entries, func(x, y domain.PriceHistoryEntry) int {
			return x.RecordedAt.Compare(y.RecordedAt)
		})

		first, ok := historyPrice(entries[0].Data)
		if !ok {
			continue
		}
		last, ok := historyPrice(entries[len(entries)-1].Data)
		if !ok {
			continue
		}

		switch {
		case last > first:
			trends[id] = domain.AlertPriceIncrease
		case last < first:
			trends[id] = domain.AlertPriceDrop
		}
		a.logger.Debug("alerts: price trend", "listing_id", id, "first", first, "last", last)
	}
	return trends
}

// historyPrice reads a non-zero price from a history snapshot
func historyPrice(data domain.Record) (float64, bool) {
	var raw any
	for _, key := range priceKeys {
		if v, ok := data[key]; ok {
			raw = v
		}
	}
	if IsNullValue(raw) {
		return 0, false
	}

	price, ok := strictFloat(raw)
	if !ok {
		s, isString := raw.(string)
		if !isString {
			return 0, false
		}
		if price, ok = ParsePrice(s); !ok {
			return 0, false
		}
	}
	if price == 0 {
		return 0, false
	}
	return price, true
}

// negate flips the sign without producing negative zero
func negate(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v
}

func severity(labels map[domain.AlertLabel]bool) domain.Severity {
	drop, spec := labels[domain.AlertPriceDrop], labels[domain.AlertSpecDisadvantage]
	switch {
	case drop && spec:
		return domain.SeverityHigh
	case drop || spec:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
