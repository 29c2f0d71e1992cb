package ledger

import (
	"reflect"
	"testing"
)

func testConverter() Converter {
	return NewConverter(RateTable{USD: 1, UZS: 12800, KZT: 480, RUB: 90})
}

func TestRecomputeTripTraveled(t *testing.T) {
	tests := []struct {
		name         string
		trip         Trip
		expected     float64
		wantWarnings int
	}{
		{
			name:     "computed from odometer",
			trip:     Trip{OdometerStart: 150000, OdometerEnd: 151200},
			expected: 1200,
		},
		{
			name:     "direct value wins over odometer",
			trip:     Trip{OdometerStart: 150000, OdometerEnd: 151200, Traveled: 900},
			expected: 900,
		},
		{
			name:     "no odometer and no direct value",
			trip:     Trip{},
			expected: 0,
		},
		{
			name:         "odometer end below start is flagged",
			trip:         Trip{OdometerStart: 151200, OdometerEnd: 150000},
			expected:     0,
			wantWarnings: 1,
		},
		{
			name:         "negative direct value is flagged and recomputed",
			trip:         Trip{OdometerStart: 100, OdometerEnd: 200, Traveled: -5},
			expected:     100,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := RecomputeTrip(&tt.trip, testConverter())
			if !floatEquals(tt.trip.Traveled, tt.expected) {
				t.Errorf("Traveled = %v, want %v", tt.trip.Traveled, tt.expected)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %v", len(warnings), tt.wantWarnings, warnings)
			}
		})
	}
}

func TestRecomputeTripFuelSummary(t *testing.T) {
	trip := Trip{
		OdometerStart: 150000,
		OdometerEnd:   151200,
		Fuel: []FuelEntry{
			{Country: "UZ", Liters: 200, PricePerLiter: 12800, Currency: UZS},
			{Country: "UZ", Liters: 80, PricePerLiter: 12800, Currency: UZS},
			{Country: "KZ", Liters: 100, PricePerLiter: 240, Currency: KZT},
		},
	}

	warnings := RecomputeTrip(&trip, testConverter())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	// 200 L * 12800 UZS at 12800 → 200 USD; 80 L → 80 USD; 100 L * 240 KZT at 480 → 50 USD
	uz := trip.FuelSummary.ByCountry["UZ"]
	if !floatEquals(uz.Liters, 280) || !floatEquals(uz.AmountBase, 280) {
		t.Errorf("UZ bucket = %+v, want {280 280}", uz)
	}
	kz := trip.FuelSummary.ByCountry["KZ"]
	if !floatEquals(kz.Liters, 100) || !floatEquals(kz.AmountBase, 50) {
		t.Errorf("KZ bucket = %+v, want {100 50}", kz)
	}
	if !floatEquals(trip.FuelSummary.TotalLiters, 380) {
		t.Errorf("TotalLiters = %v, want 380", trip.FuelSummary.TotalLiters)
	}
	if !floatEquals(trip.FuelSummary.TotalBase, 330) {
		t.Errorf("TotalBase = %v, want 330", trip.FuelSummary.TotalBase)
	}
	// per-country totals must add up to the grand total exactly
	sum := 0.0
	for _, bucket := range trip.FuelSummary.ByCountry {
		sum += bucket.AmountBase
	}
	if !floatEquals(sum, trip.FuelSummary.TotalBase) {
		t.Errorf("per-country sum %v != total %v", sum, trip.FuelSummary.TotalBase)
	}
	// 380 L over 1200 km → 31.667 L/100km
	if !floatEquals(trip.FuelSummary.Consumption, 31.667) {
		t.Errorf("Consumption = %v, want 31.667", trip.FuelSummary.Consumption)
	}
}

func TestRecomputeTripConsumptionGuards(t *testing.T) {
	// no distance: consumption stays 0
	trip := Trip{Fuel: []FuelEntry{{Country: "UZ", Liters: 40, PricePerLiter: 1, Currency: USD}}}
	RecomputeTrip(&trip, testConverter())
	if trip.FuelSummary.Consumption != 0 {
		t.Errorf("Consumption without distance = %v, want 0", trip.FuelSummary.Consumption)
	}

	// distance but no fuel: consumption stays 0
	trip = Trip{OdometerStart: 0, OdometerEnd: 500}
	RecomputeTrip(&trip, testConverter())
	if trip.FuelSummary.Consumption != 0 {
		t.Errorf("Consumption without fuel = %v, want 0", trip.FuelSummary.Consumption)
	}
}

func TestRecomputeTripTotals(t *testing.T) {
	trip := Trip{
		OdometerStart: 1000,
		OdometerEnd:   2000,
		Fuel: []FuelEntry{
			{Country: "UZ", Liters: 100, PricePerLiter: 12800, Currency: UZS}, // 100 USD
		},
		RoadExpenses: []RoadExpense{
			{Country: "UZ", Amount: 640000, Currency: UZS}, // 50 USD
			{Country: "KZ", Amount: 24000, Currency: KZT},  // 50 USD
		},
		Unexpected: []UnexpectedExpense{
			{Name: "tow rope", Amount: 25, Currency: USD},
		},
		FoodTotal:    40,
		DriverSalary: 300,
		Income:       1000,
	}

	RecomputeTrip(&trip, testConverter())

	if !floatEquals(trip.RoadTotal, 100) {
		t.Errorf("RoadTotal = %v, want 100", trip.RoadTotal)
	}
	if !floatEquals(trip.UnexpectedTotal, 25) {
		t.Errorf("UnexpectedTotal = %v, want 25", trip.UnexpectedTotal)
	}
	// 100 fuel + 100 road + 40 food + 25 unexpected + 300 salary
	if !floatEquals(trip.TotalExpenses, 565) {
		t.Errorf("TotalExpenses = %v, want 565", trip.TotalExpenses)
	}
	if !floatEquals(trip.Profit, 435) {
		t.Errorf("Profit = %v, want 435", trip.Profit)
	}
}

func TestRecomputeTripUnknownCurrency(t *testing.T) {
	trip := Trip{
		RoadExpenses: []RoadExpense{
			{Country: "TR", Amount: 75, Currency: Currency("TRY")},
		},
	}
	warnings := RecomputeTrip(&trip, testConverter())

	if len(warnings) != 1 || warnings[0].Level != WarnDataQuality {
		t.Fatalf("want one data-quality warning, got %v", warnings)
	}
	// identity conversion keeps the raw amount
	if !floatEquals(trip.RoadTotal, 75) {
		t.Errorf("RoadTotal = %v, want 75", trip.RoadTotal)
	}
}

// Recomputing an already-recomputed trip must not change a single
// field.
func TestRecomputeTripIdempotent(t *testing.T) {
	trip := Trip{
		OdometerStart: 150000,
		OdometerEnd:   151200,
		Fuel: []FuelEntry{
			{Country: "UZ", Liters: 380, PricePerLiter: 11265, Currency: UZS},
		},
		RoadExpenses: []RoadExpense{
			{Country: "KZ", Amount: 17280, Currency: KZT},
		},
		Unexpected:   []UnexpectedExpense{{Name: "fine", Amount: 90, Currency: RUB}},
		FoodTotal:    55,
		DriverSalary: 250,
		Income:       900,
	}
	conv := testConverter()

	RecomputeTrip(&trip, conv)
	first := trip

	RecomputeTrip(&trip, conv)
	if !reflect.DeepEqual(first, trip) {
		t.Errorf("second recompute changed the trip:\nfirst:  %+v\nsecond: %+v", first, trip)
	}
}
