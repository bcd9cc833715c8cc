package gate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obari/ledger/pkg/core"
	"github.com/obari/ledger/pkg/gate"
)

func validPayload() core.Payload {
	return core.Payload{
		Currency: "USD",
		Lines: []core.LineItem{
			{SKU: "X", Qty: 2, UnitPrice: 10, TaxRate: 0.05},
		},
		Subtotal: 20.00,
		TaxTotal: 1.00,
		Total:    21.00,
	}
}

func TestBase(t *testing.T) {
	g := gate.New(nil)

	t.Run("Accepts Valid Payload", func(t *testing.T) {
		require.NoError(t, g.Base(validPayload()))
	})

	t.Run("Rejects Unsupported Currency", func(t *testing.T) {
		p := validPayload()
		p.Currency = "XXX"

		err := g.Base(p)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, core.CodeUnsupportedCurrency, verr.Code)
	})

	t.Run("Rejects Empty Line Set", func(t *testing.T) {
		p := validPayload()
		p.Lines = nil

		err := g.Base(p)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, core.CodeEmptyLineSet, verr.Code)
	})

	t.Run("Rejects Negative Quantity", func(t *testing.T) {
		p := validPayload()
		p.Lines[0].Qty = -1

		err := g.Base(p)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, core.CodeInvalidNumericField, verr.Code)
		assert.Equal(t, "lines[0].qty", verr.Field)
	})

	t.Run("Custom Currency Set", func(t *testing.T) {
		custom := gate.New([]string{"BRL"})
		p := validPayload()
		p.Currency = "BRL"
		require.NoError(t, custom.Base(p))

		p.Currency = "USD"
		require.Error(t, custom.Base(p))
	})
}

func TestRecompute(t *testing.T) {
	totals := gate.Recompute([]core.LineItem{
		{SKU: "X", Qty: 2, UnitPrice: 10, TaxRate: 0.05},
	})

	assert.InDelta(t, 20.00, totals.Subtotal, 1e-9)
	assert.InDelta(t, 1.00, totals.TaxTotal, 1e-9)
	assert.InDelta(t, 21.00, totals.Total, 1e-9)
}

func TestFinal(t *testing.T) {
	g := gate.New(nil)

	t.Run("Accepts Matching Totals", func(t *testing.T) {
		require.NoError(t, g.Final(validPayload()))
	})

	t.Run("Tolerates Sub Cent Noise", func(t *testing.T) {
		p := validPayload()
		p.Total = 21.009
		require.NoError(t, g.Final(p))
	})

	t.Run("Fails Closed Beyond One Cent", func(t *testing.T) {
		p := validPayload()
		p.Total = 25.00

		err := g.Final(p)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, core.CodeTotalsMismatch, verr.Code)
		require.NotEmpty(t, verr.Diagnostics)
		assert.Contains(t, verr.Diagnostics[0], "recomputed 21.00")
	})

	t.Run("Runs Base Rules First", func(t *testing.T) {
		p := validPayload()
		p.Currency = "XXX"

		err := g.Final(p)
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, core.CodeUnsupportedCurrency, verr.Code)
	})
}

func TestAdjustedMirrorsFinal(t *testing.T) {
	g := gate.New(nil)

	p := validPayload()
	require.NoError(t, g.Adjusted(p))

	p.Subtotal = 99
	errAdjusted := g.Adjusted(p)
	errFinal := g.Final(p)
	require.Error(t, errAdjusted)
	require.Error(t, errFinal)

	var va, vf *core.ValidationError
	require.True(t, errors.As(errAdjusted, &va))
	require.True(t, errors.As(errFinal, &vf))
	assert.Equal(t, vf.Code, va.Code)
}
