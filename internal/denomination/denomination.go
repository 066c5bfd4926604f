package denomination

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"totalhealth/backend/internal/domain"
)

var ErrNegativeCount = errors.New("denomination counts must not be negative")

// FaceValues lists the note values in the order they are counted.
var FaceValues = []int64{1000, 500, 200, 100, 50, 20, 10, 5, 2, 1}

// Counts returns the note counts of d keyed by face value.
func Counts(d domain.Denomination) map[int64]int {
	return map[int64]int{
		1000: d.Note1000,
		500:  d.Note500,
		200:  d.Note200,
		100:  d.Note100,
		50:   d.Note50,
		20:   d.Note20,
		10:   d.Note10,
		5:    d.Note5,
		2:    d.Note2,
		1:    d.Note1,
	}
}

// FromCounts builds a reconciled Denomination from a face value -> count
// map. Unknown face values are rejected.
func FromCounts(counts map[int64]int) (domain.Denomination, error) {
	var d domain.Denomination
	for value, count := range counts {
		switch value {
		case 1000:
			d.Note1000 = count
		case 500:
			d.Note500 = count
		case 200:
			d.Note200 = count
		case 100:
			d.Note100 = count
		case 50:
			d.Note50 = count
		case 20:
			d.Note20 = count
		case 10:
			d.Note10 = count
		case 5:
			d.Note5 = count
		case 2:
			d.Note2 = count
		case 1:
			d.Note1 = count
		default:
			return domain.Denomination{}, fmt.Errorf("unknown face value %d", value)
		}
	}
	if err := Validate(d); err != nil {
		return domain.Denomination{}, err
	}
	return Reconcile(d), nil
}

func Validate(d domain.Denomination) error {
	for _, count := range Counts(d) {
		if count < 0 {
			return ErrNegativeCount
		}
	}
	return nil
}

// Reconcile recomputes TotalCash from the note counts, discarding whatever
// total the caller supplied.
func Reconcile(d domain.Denomination) domain.Denomination {
	total := decimal.Zero
	for value, count := range Counts(d) {
		total = total.Add(decimal.NewFromInt(value).Mul(decimal.NewFromInt(int64(count))))
	}
	d.TotalCash = total
	return d
}

// Variance is the counted cash minus the cash the till should hold.
// Positive means surplus, negative means shortage.
func Variance(d domain.Denomination, expectedCashSales decimal.Decimal) decimal.Decimal {
	return Reconcile(d).TotalCash.Sub(expectedCashSales)
}
