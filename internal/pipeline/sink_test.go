package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatRowCSVFormat(t *testing.T) {
	r := StatRow{
		PeriodStart: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		Symbol:      "AAPL",
		Price:       173.5,
		PctChange:   -1.2345,
		Min:         170.0,
		Max:         180.25,
		Avg:         175.125,
	}

	assert.Equal(t,
		"2024-05-01T09:30:00Z,AAPL,$173.50,-1.23%,$170.00,$180.25,$175.13",
		r.CSV())
}

func TestCSVHeaderWindow(t *testing.T) {
	assert.Equal(t, "period start,symbol,price,change %,min,max,30d avg", csvHeader(30))
}

func TestCSVSinkWritesHeaderOnceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := OpenCSVSink(path, 30)
	require.NoError(t, err)
	require.NoError(t, sink.Append([]StatRow{row("AAPL", 1)}))
	require.NoError(t, sink.Close())

	// A restart appends; it must not repeat the header or truncate.
	sink, err = OpenCSVSink(path, 30)
	require.NoError(t, err)
	require.NoError(t, sink.Append([]StatRow{row("MSFT", 2)}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, csvHeader(30), lines[0])
	assert.Contains(t, lines[1], "AAPL")
	assert.Contains(t, lines[2], "MSFT")
}

func TestCSVSinkRetainsRowsOnFailedFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := OpenCSVSink(path, 30)
	require.NoError(t, err)

	// Closing the handle underneath the sink makes the next write fail.
	require.NoError(t, sink.file.Close())

	err = sink.Append([]StatRow{row("AAPL", 1), row("MSFT", 2)})
	assert.Error(t, err)
	assert.Equal(t, 2, sink.Pending(), "failed rows stay buffered for retry")
}

func TestCSVSinkFlushNoPendingIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := OpenCSVSink(path, 30)
	require.NoError(t, err)
	defer sink.Close()

	assert.NoError(t, sink.Flush())
	assert.Equal(t, 0, sink.Pending())
}

func TestConsoleSinkBannerAndRows(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleSink(&buf)

	to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c.Banner(to, 30)
	c.Row(row("AAPL", 10))

	out := buf.String()
	assert.Contains(t, out, "*** 2024-05-01T00:00:00Z ***")
	assert.Contains(t, out, csvHeader(30))
	assert.Contains(t, out, ",AAPL,")
}
