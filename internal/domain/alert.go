package domain

import "time"

// AlertLabel is a listing-level alert category
type AlertLabel string

const (
	AlertPriceDrop        AlertLabel = "price_drop"
	AlertSpecDisadvantage AlertLabel = "spec_disadvantage"
	AlertPriceIncrease    AlertLabel = "price_increase"
)

// Severity ranks how urgent a listing's alerts are
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ListingComparison pairs a competitor listing with its comparison against the user's product
type ListingComparison struct {
	ListingID  string           `json:"listing_id"`
	Comparison ComparisonResult `json:"comparison"`
}

// PriceHistoryEntry is one snapshot of a listing's data
type PriceHistoryEntry struct {
	ListingID  string    `json:"listing_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Data       Record    `json:"data"`
}

// CategorySummary is a count with its share of all compared listings
type CategorySummary struct {
	Count            int     `json:"count"`
	PercentageChange float64 `json:"percentage_change"`
}

// DashboardSummary holds the three dashboard cards
type DashboardSummary struct {
	PriceDrops        CategorySummary `json:"price_drops"`
	SpecDisadvantages CategorySummary `json:"spec_disadvantages"`
	PriceIncreases    CategorySummary `json:"price_increases"`
}

// ListingAlert lists the distinct alerts raised for one listing
type ListingAlert struct {
	ListingID string       `json:"listing_id"`
	Alerts    []AlertLabel `json:"alerts"`
	Severity  Severity     `json:"severity"`
}

// AlertSummary is the aggregated dashboard view
type AlertSummary struct {
	Summary       DashboardSummary `json:"summary"`
	ListingAlerts []ListingAlert   `json:"listing_alerts"`
}
