package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/finsight/internal/models"
)

func TestSECLoaderRespectsLimitAndOrder(t *testing.T) {
	root := t.TempDir()
	writeFiling(t, root, "10-K", "AAPL", "AAPL_20240101.txt", "fiscal 2024")
	writeFiling(t, root, "10-K", "AAPL", "AAPL_20231001.txt", "fiscal 2023")

	l, err := Get("sec", Config{DataDir: root})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", FilingType: "10-K", Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, "fiscal 2024", records[0].Content)

	all, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", FilingType: "10-K", Limit: 5})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.After(all[1].Date))
}

func TestSECLoaderRecordFields(t *testing.T) {
	root := t.TempDir()
	writeFiling(t, root, "10-K", "AAPL", "AAPL_10-K_20240101.txt", "Test filing content")

	l, err := Get("sec", Config{DataDir: root})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", FilingType: "10-K", Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, "10-K", rec.FilingType)
	assert.Equal(t, SourceSEC, rec.Source)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/AAPL/AAPL_10-K_20240101.txt", rec.URL)
	assert.NotEmpty(t, rec.Path)
}

func TestSECLoaderMissingDirectoryIsEmpty(t *testing.T) {
	l, err := Get("sec", Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", FilingType: "10-K", Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSECLoaderLowerCaseSymbolFindsUpperCaseDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiling(t, root, "10-Q", "MSFT", "MSFT_20240430.txt", "q3")

	l, err := Get("sec", Config{DataDir: root})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "msft", FilingType: "10-Q", Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MSFT", records[0].Symbol)
}

func TestSECLoaderSkipsMalformedDatesAndOtherFiles(t *testing.T) {
	root := t.TempDir()
	writeFiling(t, root, "8-K", "TSLA", "TSLA_20240105.txt", "good")
	writeFiling(t, root, "8-K", "TSLA", "TSLA_notadate.txt", "bad date")
	writeFiling(t, root, "8-K", "TSLA", "TSLA_20240106.html", "wrong extension")

	l, err := Get("sec", Config{DataDir: root})
	require.NoError(t, err)

	records, err := l.Load(context.Background(), models.LoadQuery{Symbol: "TSLA", FilingType: "8-K", Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].Content)
}

func TestSECLoaderRejectsBadInput(t *testing.T) {
	l, err := Get("sec", Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	_, err = l.Load(context.Background(), models.LoadQuery{Symbol: "AAPL", FilingType: "S-1", Limit: 5})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = l.Load(context.Background(), models.LoadQuery{Symbol: "", FilingType: "10-K", Limit: 5})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFilingDate(t *testing.T) {
	d, err := filingDate("AAPL_10-K_20231001.txt")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = filingDate("AAPL.txt")
	assert.Error(t, err)
}
