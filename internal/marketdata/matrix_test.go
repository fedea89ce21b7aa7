package marketdata_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliolab/folio/internal/marketdata"
	testingpkg "github.com/foliolab/folio/internal/testing"
)

var fixtureStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func window() (time.Time, time.Time) {
	return fixtureStart.AddDate(0, 0, -1), fixtureStart.AddDate(1, 0, 0)
}

func TestPriceMatrix_AlignsOnCommonDates(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", fixtureStart, []float64{100, 101, 102, 103})
	// BBB is missing the first trading day
	provider.AddSeries("BBB", fixtureStart.AddDate(0, 0, 1), []float64{50, 51, 52})

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	matrix, err := builder.PriceMatrix([]string{"AAA", "BBB"}, start, end)

	require.NoError(t, err)
	require.False(t, matrix.Empty())
	assert.Equal(t, []string{"AAA", "BBB"}, matrix.Symbols)
	// Inner join drops AAA's first date
	assert.Equal(t, 3, matrix.Rows())
	assert.Equal(t, []float64{101, 102, 103}, matrix.Column("AAA"))
	assert.Equal(t, []float64{50, 51, 52}, matrix.Column("BBB"))
}

func TestPriceMatrix_DatesAscending(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", fixtureStart, []float64{100, 101, 102, 103, 104})

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	matrix, err := builder.PriceMatrix([]string{"AAA"}, start, end)

	require.NoError(t, err)
	for i := 1; i < matrix.Rows(); i++ {
		assert.True(t, matrix.Dates[i].After(matrix.Dates[i-1]), "dates must be strictly ascending")
	}
}

func TestPriceMatrix_ExcludesFailedSymbols(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", fixtureStart, []float64{100, 101, 102})
	provider.FailSymbols["BAD"] = true

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	matrix, err := builder.PriceMatrix([]string{"AAA", "BAD", "MISSING"}, start, end)

	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, matrix.Symbols)
	assert.Equal(t, 3, matrix.Rows())
}

func TestPriceMatrix_NoUsableSymbols(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.FailSymbols["BAD"] = true

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	matrix, err := builder.PriceMatrix([]string{"BAD", "MISSING"}, start, end)

	require.NoError(t, err)
	assert.True(t, matrix.Empty())
}

func TestPriceMatrix_NoOverlappingDates(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", fixtureStart, []float64{100, 101})
	provider.AddSeries("BBB", fixtureStart.AddDate(0, 1, 0), []float64{50, 51})

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	matrix, err := builder.PriceMatrix([]string{"AAA", "BBB"}, start, end)

	require.NoError(t, err)
	assert.True(t, matrix.Empty())
}

func TestReturns(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", fixtureStart, []float64{100, 110, 99})

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	prices, err := builder.PriceMatrix([]string{"AAA"}, start, end)
	require.NoError(t, err)

	returns := prices.Returns()
	require.Equal(t, 2, returns.Rows())
	col := returns.Column("AAA")
	assert.InDelta(t, 0.10, col[0], 1e-12)
	assert.InDelta(t, -0.10, col[1], 1e-12)
	// First price date carries no return
	assert.Equal(t, prices.Dates[1], returns.Dates[0])
}

func TestReturns_SingleRow(t *testing.T) {
	provider := testingpkg.NewStaticProvider()
	provider.AddSeries("AAA", fixtureStart, []float64{100})

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	start, end := window()
	prices, err := builder.PriceMatrix([]string{"AAA"}, start, end)
	require.NoError(t, err)

	assert.True(t, prices.Returns().Empty())
}
