package usecase

import (
	"log/slog"
	"reflect"

	"github.com/competitiveedge/engine/internal/domain"
)

// Comparator compares a user's record against a competitor's, field by field
type Comparator struct {
	logger *slog.Logger
}

// NewComparator creates a comparator; metric failures are logged at debug level
func NewComparator(logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{logger: logger}
}

// Compare evaluates every schema field and metric available in both records.
// Missing or null values are skipped, never treated as zero.
func (c *Comparator) Compare(user, competitor domain.Record, schema *domain.ProductSchema) *domain.ComparisonResult {
	result := domain.NewComparisonResult()
	if schema == nil {
		return result
	}

	for _, field := range schema.Fields {
		userValue, competitorValue := user[field.Name], competitor[field.Name]
		if IsNullValue(userValue) || IsNullValue(competitorValue) {
			continue
		}

		var cmp domain.FieldComparison
		if field.Type.Numeric() {
			cmp = compareNumeric(userValue, competitorValue, field.CompareDirection, domain.AlertRed)
		} else {
			cmp = domain.FieldComparison{User: userValue, Competitor: competitorValue, Advantage: domain.AdvantageDifferent}
			if reflect.DeepEqual(userValue, competitorValue) {
				cmp.Advantage = domain.AdvantageEqual
			}
		}
		cmp.PriceField = field.IsPrice()
		result.Fields[field.Name] = cmp
	}

	for _, metric := range schema.Metrics {
		userMetric, err := CalculateMetric(metric, user)
		if err != nil {
			c.logger.Debug("compare: skipping metric", "metric", metric.Name, "formula", trimFormula(metric.Formula), "side", "user", "error", err)
			continue
		}
		competitorMetric, err := CalculateMetric(metric, competitor)
		if err != nil {
			c.logger.Debug("compare: skipping metric", "metric", metric.Name, "formula", trimFormula(metric.Formula), "side", "competitor", "error", err)
			continue
		}
		result.Metrics[metric.Name] = compareNumeric(userMetric, competitorMetric, metric.CompareDirection, domain.AlertYellow)
	}

	return result
}

// compareNumeric applies the direction rule. lowerAlert is raised when the
// competitor wins on a lower-is-better value; higher-is-better wins are
// always yellow.
func compareNumeric(userValue, competitorValue any, direction domain.CompareDirection, lowerAlert domain.AlertLevel) domain.FieldComparison {
	cmp := domain.FieldComparison{User: userValue, Competitor: competitorValue, Advantage: domain.AdvantageEqual}

	u, uok := strictFloat(userValue)
	v, vok := strictFloat(competitorValue)
	if !uok || !vok {
		return cmp
	}

	diff := v - u
	cmp.Difference = &diff

	if direction == domain.CompareLower {
		switch {
		case v < u:
			cmp.Advantage, cmp.Alert = domain.AdvantageCompetitor, lowerAlert
		case v > u:
			cmp.Advantage = domain.AdvantageUser
		}
		return cmp
	}

	switch {
	case v > u:
		cmp.Advantage, cmp.Alert = domain.AdvantageCompetitor, domain.AlertYellow
	case v < u:
		cmp.Advantage = domain.AdvantageUser
	}
	return cmp
}
