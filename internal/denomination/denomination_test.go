package denomination

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"totalhealth/backend/internal/domain"
)

func TestReconcileIgnoresClientTotal(t *testing.T) {
	d := domain.Denomination{
		Note1000:  1,
		Note100:   3,
		Note5:     2,
		Note1:     4,
		TotalCash: decimal.NewFromInt(999999),
	}

	got := Reconcile(d)
	require.True(t, got.TotalCash.Equal(decimal.NewFromInt(1314)), "got %s", got.TotalCash)
	require.Equal(t, 3, got.Note100)
}

func TestReconcileMatchesWeightedSum(t *testing.T) {
	counts := []domain.Denomination{
		{},
		{Note1000: 2, Note500: 1, Note200: 1, Note100: 1, Note50: 1, Note20: 1, Note10: 1, Note5: 1, Note2: 1, Note1: 1},
		{Note2: 7, Note20: 11},
	}
	for _, c := range counts {
		want := int64(0)
		for value, count := range Counts(c) {
			want += value * int64(count)
		}
		require.True(t, Reconcile(c).TotalCash.Equal(decimal.NewFromInt(want)))
	}
}

func TestFromCounts(t *testing.T) {
	d, err := FromCounts(map[int64]int{100: 1})
	require.NoError(t, err)
	require.True(t, d.TotalCash.Equal(decimal.NewFromInt(100)))

	_, err = FromCounts(map[int64]int{3: 1})
	require.Error(t, err)

	_, err = FromCounts(map[int64]int{50: -1})
	require.ErrorIs(t, err, ErrNegativeCount)
}

func TestVariance(t *testing.T) {
	d, err := FromCounts(map[int64]int{100: 1})
	require.NoError(t, err)

	require.True(t, Variance(d, decimal.NewFromInt(40)).Equal(decimal.NewFromInt(60)))
	require.True(t, Variance(d, decimal.NewFromInt(130)).Equal(decimal.NewFromInt(-30)))
}
