package delivery

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dinepos/m/domain"
)

const (
	BandFlat  = "flat"
	BandPerKm = "per_km"

	RuleFreeAbove = "free_above"
	RuleNone      = "none"
)

// Band prices deliveries up to MaxKm. A zero MaxKm is unbounded and may only
// appear last.
type Band struct {
	MaxKm  decimal.Decimal
	Type   string
	Amount decimal.Decimal
	Base   decimal.Decimal
	PerKm  decimal.Decimal
}

type Rules struct {
	FreeAbove decimal.Decimal
	Bands     []Band
}

type rulesFile struct {
	FreeAbove float64 `yaml:"free_above"`
	Bands     []struct {
		MaxKm  float64 `yaml:"max_km"`
		Type   string  `yaml:"type"`
		Amount float64 `yaml:"amount"`
		Base   float64 `yaml:"base"`
		PerKm  float64 `yaml:"per_km"`
	} `yaml:"bands"`
}

// DefaultRules is used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		FreeAbove: decimal.NewFromInt(1500),
		Bands: []Band{
			{MaxKm: decimal.NewFromInt(3), Type: BandFlat, Amount: decimal.NewFromInt(50)},
			{MaxKm: decimal.NewFromInt(8), Type: BandPerKm, Base: decimal.NewFromInt(50), PerKm: decimal.NewFromInt(15)},
			{Type: BandPerKm, Base: decimal.NewFromInt(80), PerKm: decimal.NewFromInt(20)},
		},
	}
}

// LoadRules reads rules from a YAML file; an empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read delivery rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Rules{}, fmt.Errorf("parse delivery rules: %w", err)
	}
	r := Rules{FreeAbove: domain.Money(decimal.NewFromFloat(f.FreeAbove))}
	for _, b := range f.Bands {
		r.Bands = append(r.Bands, Band{
			MaxKm:  decimal.NewFromFloat(b.MaxKm),
			Type:   b.Type,
			Amount: domain.Money(decimal.NewFromFloat(b.Amount)),
			Base:   domain.Money(decimal.NewFromFloat(b.Base)),
			PerKm:  domain.Money(decimal.NewFromFloat(b.PerKm)),
		})
	}
	return r, r.Validate()
}

func (r Rules) Validate() error {
	if r.FreeAbove.IsNegative() {
		return errors.New("free_above cannot be negative")
	}
	prev := decimal.Zero
	for i, b := range r.Bands {
		if b.Type != BandFlat && b.Type != BandPerKm {
			return fmt.Errorf("band %d: unknown type %q", i, b.Type)
		}
		if b.Amount.IsNegative() || b.Base.IsNegative() || b.PerKm.IsNegative() || b.MaxKm.IsNegative() {
			return fmt.Errorf("band %d: negative value", i)
		}
		if b.MaxKm.IsZero() {
			if i != len(r.Bands)-1 {
				return fmt.Errorf("band %d: only the last band may be unbounded", i)
			}
			continue
		}
		if !b.MaxKm.GreaterThan(prev) {
			return fmt.Errorf("band %d: max_km must increase", i)
		}
		prev = b.MaxKm
	}
	return nil
}

// Engine quotes delivery charges. It holds no state besides its rules and is
// safe for concurrent use.
type Engine struct {
	rules Rules
}

func NewEngine(r Rules) *Engine { return &Engine{rules: r} }

func (e *Engine) Quote(area domain.DeliveryArea, subtotal decimal.Decimal) domain.DeliveryCharge {
	out := domain.DeliveryCharge{AreaID: area.ID, DeliveryCharge: decimal.Zero}
	if e.rules.FreeAbove.IsPositive() && subtotal.GreaterThanOrEqual(e.rules.FreeAbove) {
		out.IsFree = true
		out.RuleType = RuleFreeAbove
		return out
	}
	if len(e.rules.Bands) == 0 {
		out.IsFree = true
		out.RuleType = RuleNone
		return out
	}

	band := e.rules.Bands[len(e.rules.Bands)-1]
	for _, b := range e.rules.Bands {
		if b.MaxKm.IsZero() || area.DistanceKm.LessThanOrEqual(b.MaxKm) {
			band = b
			break
		}
	}
	switch band.Type {
	case BandFlat:
		out.DeliveryCharge = domain.Money(band.Amount)
	case BandPerKm:
		out.DeliveryCharge = domain.Money(band.Base.Add(area.DistanceKm.Mul(band.PerKm)))
	}
	out.RuleType = band.Type
	out.IsFree = out.DeliveryCharge.IsZero()
	return out
}
