// Package pricing computes hire quotes. The engine is a pure function
// of its inputs and tariff; it performs no I/O and keeps no state, so
// recomputing on every change is the intended usage.
package pricing

import (
	"errors"
	"sort"
	"strings"
)

var ErrNoDays = errors.New("quote requires at least one hire day")

// DeliveryTier prices delivery for any distance up to MaxMiles.
type DeliveryTier struct {
	MaxMiles int `yaml:"max_miles" json:"max_miles"`
	Price    int `yaml:"price" json:"price"`
}

// Tariff is the injectable pricing configuration. All amounts are whole
// pounds, always ex-VAT.
type Tariff struct {
	DailyRate     int            `yaml:"daily_rate" json:"daily_rate"`
	Tiers         []DeliveryTier `yaml:"delivery_tiers" json:"delivery_tiers"`
	Mileage       map[string]int `yaml:"mileage" json:"mileage"`
	FallbackMiles int            `yaml:"fallback_miles" json:"fallback_miles"`
}

// DefaultTariff returns the standing rate card.
func DefaultTariff() Tariff {
	return Tariff{
		DailyRate:     70,
		FallbackMiles: 100,
		Tiers: []DeliveryTier{
			{MaxMiles: 50, Price: 150},
			{MaxMiles: 150, Price: 250},
			{MaxMiles: 300, Price: 400},
		},
		Mileage: map[string]int{
			"EN": 0, "N": 10, "AL": 10, "WD": 10,
			"E": 15, "NW": 15, "EC": 15, "WC": 15, "W": 15, "IG": 15, "SG": 15, "HA": 15,
			"SE": 20, "SW": 20, "RM": 20, "UB": 20,
			"CM": 25, "LU": 25, "TW": 25, "DA": 25,
			"HP": 30, "KT": 30, "CR": 30, "BR": 30, "SL": 30,
			"SS": 35, "MK": 35,
			"CB": 45, "GU": 45,
			"RG": 50, "CO": 55, "OX": 60, "PE": 60,
			"BN": 70, "IP": 75, "LE": 90, "NR": 100,
		},
	}
}

// Normalize sorts tiers ascending and fills zero values from the
// default tariff so a sparse YAML override still prices sanely.
func (t *Tariff) Normalize() {
	def := DefaultTariff()
	if t.DailyRate <= 0 {
		t.DailyRate = def.DailyRate
	}
	if t.FallbackMiles <= 0 {
		t.FallbackMiles = def.FallbackMiles
	}
	if len(t.Tiers) == 0 {
		t.Tiers = def.Tiers
	}
	if len(t.Mileage) == 0 {
		t.Mileage = def.Mileage
	}
	sort.Slice(t.Tiers, func(i, j int) bool { return t.Tiers[i].MaxMiles < t.Tiers[j].MaxMiles })
}

// Quote is an immutable price snapshot. Totals are ex-VAT; VAT is never
// added here so displayed figures stay valid across rate changes.
type Quote struct {
	Days         int `json:"days"`
	DailyCost    int `json:"daily_cost"`
	DeliveryCost int `json:"delivery_cost"`
	TotalExVAT   int `json:"total_ex_vat"`
}

// DistanceEstimator maps a raw postcode to an estimated one-way mileage.
// The shipped implementation is a coarse area-prefix table; a real
// distance API can be substituted without touching tier selection.
type DistanceEstimator interface {
	EstimateMiles(postcode string) int
}

// PrefixTableEstimator resolves the 1-2 letter postcode area against a
// fixed table. Unknown areas get the conservative fallback mileage.
type PrefixTableEstimator struct {
	Mileage       map[string]int
	FallbackMiles int
}

func (e PrefixTableEstimator) EstimateMiles(postcode string) int {
	prefix := areaPrefix(postcode)
	if miles, ok := e.Mileage[prefix]; ok {
		return miles
	}
	return e.FallbackMiles
}

// areaPrefix extracts the leading letters of a postcode, at most two.
// "en10 3xx" -> "EN", "n9" -> "N", "" -> "".
func areaPrefix(postcode string) string {
	s := strings.ToUpper(strings.TrimSpace(postcode))
	i := 0
	for i < len(s) && i < 2 && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	return s[:i]
}

type Engine struct {
	tariff    Tariff
	estimator DistanceEstimator
}

// NewEngine builds an engine over a tariff. A nil estimator gets the
// tariff's own prefix table.
func NewEngine(tariff Tariff, estimator DistanceEstimator) *Engine {
	tariff.Normalize()
	if estimator == nil {
		estimator = PrefixTableEstimator{Mileage: tariff.Mileage, FallbackMiles: tariff.FallbackMiles}
	}
	return &Engine{tariff: tariff, estimator: estimator}
}

func (e *Engine) Tariff() Tariff { return e.tariff }

// Quote prices a hire of the given length delivered to the given
// postcode.
func (e *Engine) Quote(days int, postcode string) (Quote, error) {
	if days < 1 {
		return Quote{}, ErrNoDays
	}
	daily := days * e.tariff.DailyRate
	delivery := e.deliveryPrice(e.estimator.EstimateMiles(postcode))
	return Quote{
		Days:         days,
		DailyCost:    daily,
		DeliveryCost: delivery,
		TotalExVAT:   daily + delivery,
	}, nil
}

// deliveryPrice picks the first tier covering the mileage; beyond the
// last tier the most expensive one applies.
func (e *Engine) deliveryPrice(miles int) int {
	if len(e.tariff.Tiers) == 0 {
		return 0
	}
	for _, tier := range e.tariff.Tiers {
		if tier.MaxMiles >= miles {
			return tier.Price
		}
	}
	return e.tariff.Tiers[len(e.tariff.Tiers)-1].Price
}
