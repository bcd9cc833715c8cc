// Package gate implements the per-stage business-rule checks. Gates are
// pure functions over a payload: they carry no persistent state and are
// re-invoked on every read, never trusted from a prior write-time result.
package gate

import (
	"fmt"
	"math"
	"strings"

	"github.com/obari/ledger/pkg/core"
)

// DefaultCurrencies is the supported currency set when none is configured.
var DefaultCurrencies = []string{"IDR", "USD", "SGD", "EUR"}

// centTolerance absorbs upstream rounding noise: declared totals within one
// cent of the recomputed totals are accepted as-is.
const centTolerance = 0.01 + 1e-9

// Gate validates payloads against a configured currency set.
type Gate struct {
	currencies map[string]struct{}
}

// New creates a Gate accepting the given currencies.
// An empty set falls back to DefaultCurrencies.
func New(currencies []string) *Gate {
	if len(currencies) == 0 {
		currencies = DefaultCurrencies
	}
	set := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Gate{currencies: set}
}

// Base validates a BASE payload: supported currency, at least one line,
// and finite non-negative numeric fields.
func (g *Gate) Base(p core.Payload) error {
	if _, ok := g.currencies[strings.ToUpper(p.Currency)]; !ok {
		return &core.ValidationError{
			Code:    core.CodeUnsupportedCurrency,
			Field:   "currency",
			Message: fmt.Sprintf("currency %q is not supported", p.Currency),
		}
	}

	if len(p.Lines) == 0 {
		return &core.ValidationError{
			Code:    core.CodeEmptyLineSet,
			Field:   "lines",
			Message: "payload must contain at least one line item",
		}
	}

	for i, line := range p.Lines {
		for _, f := range []struct {
			name  string
			value float64
		}{
			{"qty", line.Qty},
			{"unitPrice", line.UnitPrice},
			{"taxRate", line.TaxRate},
		} {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
				return &core.ValidationError{
					Code:    core.CodeInvalidNumericField,
					Field:   fmt.Sprintf("lines[%d].%s", i, f.name),
					Message: fmt.Sprintf("value %v is not a finite non-negative number", f.value),
				}
			}
		}
	}

	return nil
}

// Adjusted validates an ADJUSTED payload: Base rules plus totals
// recomputation.
func (g *Gate) Adjusted(p core.Payload) error {
	return g.recheck(p)
}

// Final validates a FINAL payload: Base rules plus totals recomputation.
func (g *Gate) Final(p core.Payload) error {
	return g.recheck(p)
}

// recheck recomputes the totals from the line items and compares them to
// the declared totals. Within one cent the declared values stand; beyond
// that the gate fails closed with TOTALS_MISMATCH, carrying the recomputed
// values as diagnostics.
func (g *Gate) recheck(p core.Payload) error {
	if err := g.Base(p); err != nil {
		return err
	}

	r := Recompute(p.Lines)

	var diags []string
	for _, c := range []struct {
		name     string
		declared float64
		computed float64
	}{
		{"subtotal", p.Subtotal, r.Subtotal},
		{"taxTotal", p.TaxTotal, r.TaxTotal},
		{"total", p.Total, r.Total},
	} {
		if math.Abs(c.declared-c.computed) > centTolerance {
			diags = append(diags, fmt.Sprintf("%s: declared %.2f, recomputed %.2f", c.name, c.declared, c.computed))
		}
	}

	if len(diags) > 0 {
		return &core.ValidationError{
			Code:        core.CodeTotalsMismatch,
			Field:       "totals",
			Message:     "declared totals differ from recomputed totals beyond one cent",
			Diagnostics: diags,
		}
	}

	return nil
}

// For returns the gate function for a stage.
func (g *Gate) For(stage core.Stage) func(core.Payload) error {
	switch stage {
	case core.StageBase:
		return g.Base
	case core.StageAdjusted:
		return g.Adjusted
	case core.StageFinal:
		return g.Final
	}
	return nil
}

// Totals holds recomputed overall totals.
type Totals struct {
	Subtotal float64
	TaxTotal float64
	Total    float64
}

// Recompute derives the overall totals from the line items:
// per line, lineSubtotal = qty * unitPrice, taxAmount = lineSubtotal * taxRate,
// lineTotal = lineSubtotal + taxAmount; the sums make up the payload totals.
func Recompute(lines []core.LineItem) Totals {
	var t Totals
	for _, line := range lines {
		lineSubtotal := line.Qty * line.UnitPrice
		taxAmount := lineSubtotal * line.TaxRate
		t.Subtotal += lineSubtotal
		t.TaxTotal += taxAmount
		t.Total += lineSubtotal + taxAmount
	}
	return t
}

var _ core.Validator = (*Gate)(nil)
