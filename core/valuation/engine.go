// Package valuation prices the shelf life a shipment still has.
package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/coldchain/core/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Config sets the reference shelf life and the reporting currency.
type Config struct {
	MaxShelfLifeDays float64 `json:"max_shelf_life_days"`
	Currency         string  `json:"currency"`
}

// SetDefaults fills 14 days and USD.
func (c *Config) SetDefaults() {
	if c.MaxShelfLifeDays == 0 {
		c.MaxShelfLifeDays = 14
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
}

// Validate rejects a non-positive shelf life.
func (c Config) Validate() error {
	if c.MaxShelfLifeDays <= 0 || math.IsNaN(c.MaxShelfLifeDays) {
		return fmt.Errorf("%w: max_shelf_life_days must be positive", model.ErrConfiguration)
	}
	return nil
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// Value is the preserved and wasted value of a shipment.
type Value struct {
	CargoValue       float64 `json:"cargo_value"`
	ProfitSaved      float64 `json:"profit_saved"`
	WastedValue      float64 `json:"wasted_value"`
	RemainingPercent float64 `json:"remaining_percent"`
	RemainingDays    float64 `json:"remaining_days"`
	MaxDays          float64 `json:"max_days"`
	Grade            string  `json:"grade"`
	GradeLabel       string  `json:"grade_label"`
	Formatted        string  `json:"formatted"`
}

// Savings compares two routing outcomes.
type Savings struct {
	Savings            float64 `json:"savings"`
	ImprovementDays    float64 `json:"improvement_days"`
	ImprovementPercent float64 `json:"improvement_percent"`
	OriginalPreserved  float64 `json:"original_preserved"`
	OptimizedPreserved float64 `json:"optimized_preserved"`
	Formatted          string  `json:"formatted"`
}

// Rate is the value lost per unit of time.
type Rate struct {
	Daily  float64 `json:"daily"`
	Hourly float64 `json:"hourly"`
}

// Engine computes values. It is stateless.
type Engine struct {
	cfg     Config
	printer *message.Printer
}

// New validates cfg.
func New(cfg Config) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Currency = strings.ToUpper(cfg.Currency)
	return &Engine{cfg: cfg, printer: message.NewPrinter(language.English)}, nil
}

// Preserve computes the value preserved by the remaining shelf life.
func (e *Engine) Preserve(cargoValue, remainingDays float64) Value {
	cargoValue = math.Max(0, cargoValue)
	frac := model.Clamp(remainingDays/e.cfg.MaxShelfLifeDays, 0, 1)
	saved := cargoValue * frac
	grade, label := Grade(frac * 100)
	return Value{
		CargoValue:       cargoValue,
		ProfitSaved:      saved,
		WastedValue:      cargoValue - saved,
		RemainingPercent: frac * 100,
		RemainingDays:    math.Max(0, remainingDays),
		MaxDays:          e.cfg.MaxShelfLifeDays,
		Grade:            grade,
		GradeLabel:       label,
		Formatted:        e.Format(saved),
	}
}

// Savings compares the value preserved with and without optimization.
func (e *Engine) Savings(originalDays, optimizedDays, cargoValue float64) Savings {
	orig := e.Preserve(cargoValue, originalDays).ProfitSaved
	opt := e.Preserve(cargoValue, optimizedDays).ProfitSaved
	s := Savings{
		Savings:            opt - orig,
		ImprovementDays:    optimizedDays - originalDays,
		OriginalPreserved:  orig,
		OptimizedPreserved: opt,
	}
	if originalDays > 0 {
		s.ImprovementPercent = (optimizedDays - originalDays) / originalDays * 100
	}
	s.Formatted = e.Format(s.Savings)
	return s
}

// DailyValue spreads the cargo value over the reference shelf life.
func (e *Engine) DailyValue(cargoValue float64) Rate {
	d := math.Max(0, cargoValue) / e.cfg.MaxShelfLifeDays
	return Rate{Daily: d, Hourly: d / 24}
}

// Format renders an amount in the configured currency with thousands
// grouping. JPY has no minor unit.
func (e *Engine) Format(amount float64) string {
	sym, ok := symbols[e.cfg.Currency]
	if !ok {
		sym = "$"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if e.cfg.Currency == "JPY" {
		return sign + sym + e.printer.Sprintf("%d", int64(amount))
	}
	return sign + sym + e.printer.Sprintf("%.2f", amount)
}

// Grade maps a remaining percentage to a letter and label.
func Grade(percent float64) (string, string) {
	switch {
	case percent >= 80:
		return "A", "Premium"
	case percent >= 60:
		return "B", "Good"
	case percent >= 40:
		return "C", "Fair"
	case percent >= 20:
		return "D", "Poor"
	default:
		return "F", "Critical"
	}
}
