package ledger

import "fmt"

// RecomputeTrip rebuilds every derived trip field as a pure function
// of the trip's raw sub-entries. It is invoked on every write and by
// the batch recompute job, and must produce identical output when
// called repeatedly on identical raw data.
//
// Missing numeric fields are treated as 0; validation of raw input is
// the write boundary's job. Anything suspicious comes back as a
// Warning rather than an error.
func RecomputeTrip(t *Trip, conv Converter) []Warning {
	var warnings []Warning

	warnings = append(warnings, recomputeTraveled(t)...)

	// Fuel summary: convert each fill at its snapshotted rate,
	// accumulate per-country buckets, then totals.
	summary := FuelSummary{ByCountry: make(map[string]CountryFuel)}
	for i := range t.Fuel {
		entry := &t.Fuel[i]
		if entry.Currency != USD && entry.Rate == 0 && !conv.Known(entry.Currency) {
			warnings = append(warnings, Warning{
				Level:   WarnDataQuality,
				Field:   "fuel.currency",
				Message: fmt.Sprintf("unknown currency %q on fuel entry %d, amount passed through unconverted", entry.Currency, i),
			})
		}
		raw := entry.Liters * entry.PricePerLiter
		entry.AmountBase = conv.ToBase(raw, entry.Currency, entry.Rate)

		bucket := summary.ByCountry[entry.Country]
		bucket.Liters += entry.Liters
		bucket.AmountBase = Round2(bucket.AmountBase + entry.AmountBase)
		summary.ByCountry[entry.Country] = bucket

		summary.TotalLiters += entry.Liters
		summary.TotalBase = Round2(summary.TotalBase + entry.AmountBase)
	}
	if t.Traveled > 0 && summary.TotalLiters > 0 {
		summary.Consumption = Round3(summary.TotalLiters / t.Traveled * 100)
	}
	t.FuelSummary = summary

	// Road expenses: per-country converted totals summed into one.
	t.RoadTotal = 0
	for i := range t.RoadExpenses {
		exp := &t.RoadExpenses[i]
		if exp.Currency != USD && exp.Rate == 0 && !conv.Known(exp.Currency) {
			warnings = append(warnings, Warning{
				Level:   WarnDataQuality,
				Field:   "roadExpenses.currency",
				Message: fmt.Sprintf("unknown currency %q on road expense %d, amount passed through unconverted", exp.Currency, i),
			})
		}
		exp.AmountBase = conv.ToBase(exp.Amount, exp.Currency, exp.Rate)
		t.RoadTotal = Round2(t.RoadTotal + exp.AmountBase)
	}

	t.UnexpectedTotal = 0
	for i := range t.Unexpected {
		exp := &t.Unexpected[i]
		if exp.Currency != USD && exp.Rate == 0 && !conv.Known(exp.Currency) {
			warnings = append(warnings, Warning{
				Level:   WarnDataQuality,
				Field:   "unexpected.currency",
				Message: fmt.Sprintf("unknown currency %q on unexpected expense %d, amount passed through unconverted", exp.Currency, i),
			})
		}
		exp.AmountBase = conv.ToBase(exp.Amount, exp.Currency, exp.Rate)
		t.UnexpectedTotal = Round2(t.UnexpectedTotal + exp.AmountBase)
	}

	t.TotalExpenses = Round2(summary.TotalBase + t.RoadTotal + t.FoodTotal + t.UnexpectedTotal + t.DriverSalary)
	t.Profit = Round2(t.Income - t.TotalExpenses)

	return warnings
}

// recomputeTraveled applies the traveled-distance precedence: a direct
// positive value supplied by the caller is preserved as-is; end−start
// is only computed when no direct value was given and end > start.
// The precedence is asymmetric on purpose, historical reports depend
// on it.
func recomputeTraveled(t *Trip) []Warning {
	var warnings []Warning

	if t.Traveled > 0 {
		return nil
	}
	if t.Traveled < 0 {
		warnings = append(warnings, Warning{
			Level:   WarnInvariant,
			Field:   "traveled",
			Message: fmt.Sprintf("negative traveled distance %.2f supplied, reset to 0", t.Traveled),
		})
		t.Traveled = 0
	}
	if t.OdometerEnd > t.OdometerStart {
		t.Traveled = t.OdometerEnd - t.OdometerStart
	} else if t.OdometerEnd > 0 && t.OdometerEnd < t.OdometerStart {
		warnings = append(warnings, Warning{
			Level:   WarnInvariant,
			Field:   "traveled",
			Message: fmt.Sprintf("odometer end %.2f is below start %.2f, traveled left at 0", t.OdometerEnd, t.OdometerStart),
		})
	}
	return warnings
}
