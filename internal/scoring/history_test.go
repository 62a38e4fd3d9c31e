package scoring

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_KeepsFiveMostRecentFirst(t *testing.T) {
	var h History
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := 1; i <= 7; i++ {
		h.Push(Result{FundabilityScore: i, Timestamp: fmt.Sprintf("run-%d", i)})
	}

	items := h.Items()
	require.Len(t, items, MaxHistory)
	assert.Equal(t, 7, items[0].FundabilityScore)
	assert.Equal(t, 3, items[4].FundabilityScore)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, "run-7", latest.Timestamp)

	items[0].FundabilityScore = -1
	assert.Equal(t, 7, h.Items()[0].FundabilityScore)
}

func TestPrependHistory_DoesNotAlias(t *testing.T) {
	runs := []Result{{FundabilityScore: 1}}
	out := PrependHistory(runs, Result{FundabilityScore: 2})

	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].FundabilityScore)
	assert.Equal(t, 1, runs[0].FundabilityScore)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw      string
		expected Action
		wantErr  bool
	}{
		{"generate", ActionGenerate, false},
		{" PDF ", ActionPDF, false},
		{"share", ActionShare, false},
		{"print", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownAction))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewPricePoints(t *testing.T) {
	p, err := NewPricePoints("199.99", "", "80", "zmw")
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("199.99").Equal(p.Generate))
	assert.True(t, DefaultPricePoints.Share.Equal(p.Share))
	assert.True(t, decimal.NewFromInt(80).Equal(p.PDF))
	assert.Equal(t, "ZMW", p.Currency)

	price, err := p.Price(ActionPDF)
	require.NoError(t, err)
	assert.Equal(t, "80", price.String())

	_, err = p.Price(Action("print"))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = NewPricePoints("abc", "", "", "")
	assert.Error(t, err)

	_, err = NewPricePoints("-5", "", "", "")
	assert.Error(t, err)
}
