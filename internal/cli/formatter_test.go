package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/comphist/internal/comphist"
)

func mixHistogram() *comphist.Histogram {
	h := comphist.NewHistogram()
	h.AddBlock(comphist.CompressOn, 4096, 2048, 2048, false)
	h.AddBlock(comphist.CompressOn, 4096, 2048, 2048, false)
	h.AddBlock(comphist.CompressOff, 4096, 4096, 4096, false)

	return h
}

func TestPrintSingleText(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, PrintSingleText("tank/data@snap", comphist.Options{}, mixHistogram(), &out))

	want := tableHeader + tableRule +
		"on                      2    66.67           8192           4096           4096    2.00\n" +
		"off                     1    33.33           4096           4096           4096    1.00\n" +
		tableRule +
		"total                   3   100.00          12288           8192           8192    1.50\n" +
		"snapshot mode\n"

	assert.Equal(t, want, out.String())
}

func TestPrintTable_ConditionalTrailers(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, PrintTable(comphist.NewHistogram(), &out))
	assert.NotContains(t, out.String(), "holes")
	assert.Contains(t, out.String(), "total                   0     0.00")

	h := mixHistogram()
	h.NoteHole()
	h.NoteRedacted()
	h.NoteRedacted()
	h.AddBlock(comphist.CompressionID(77), 512, 512, 512, true)
	h.NoteTraversalError()

	out.Reset()
	require.NoError(t, PrintSingleText("tank", comphist.Options{AllowLive: true}, h, &out))

	text := out.String()
	assert.Contains(t, text, "holes: 1\n")
	assert.Contains(t, text, "redacted blocks: 2\n")
	assert.Contains(t, text, "embedded blocks: 1 (logical bytes: 512)\n")
	assert.Contains(t, text, "unknown compression blocks: 1\n")
	assert.Contains(t, text, "traversal errors: 1\n")
	assert.True(t, strings.HasSuffix(text, "live mode enabled\n"))
	assert.True(t, strings.HasPrefix(strings.Split(text, "\n")[2], "inherit"))
}

func TestPrintPerDatasetText(t *testing.T) {
	var out bytes.Buffer

	results := []DatasetResult{
		{Name: "tank/a", Hist: mixHistogram()},
		{Name: "tank/b", Hist: comphist.NewHistogram()},
	}

	require.NoError(t, PrintPerDatasetText("tank", comphist.Options{AllowLive: true}, results, &out))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Dataset: tank/a\n"+tableHeader))
	assert.Contains(t, text, "\n\nDataset: tank/b\n")
	assert.True(t, strings.HasSuffix(text, "\n\nlive mode enabled\n"))
}

func TestPrintSingleJSON(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, PrintSingleJSON("tank/data@snap", comphist.Options{BestEffort: true}, mixHistogram(), &out))

	text := out.String()
	assert.Contains(t, text, `"block_percent": 66.6667`)
	assert.Contains(t, text, `"ratio": 2.000000`)
	assert.Contains(t, text, `"ratio": 1.500000`)

	// Field order is fixed.
	keys := []string{
		`"target"`, `"mode"`, `"best_effort"`, `"entries"`, `"total"`, `"holes"`,
		`"embedded_blocks"`, `"embedded_logical_bytes"`, `"redacted_blocks"`,
		`"unknown_compression_blocks"`, `"traversal_errors"`,
	}
	last := -1
	for _, k := range keys {
		idx := strings.Index(text, k)
		require.Greater(t, idx, last, k)
		last = idx
	}

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "snapshot", doc["mode"])
	assert.Equal(t, true, doc["best_effort"])
	assert.Len(t, doc["entries"], 2)
	assert.Equal(t, float64(0), doc["holes"])
}

func TestPrintPerDatasetJSON(t *testing.T) {
	var out bytes.Buffer

	results := []DatasetResult{
		{Name: "tank/a", Hist: mixHistogram()},
		{Name: "tank/a@daily", Hist: comphist.NewHistogram()},
	}

	require.NoError(t, PrintPerDatasetJSON("tank", comphist.Options{AllowLive: true}, results, &out))

	var doc struct {
		Target    string `json:"target"`
		AllowLive bool   `json:"allow_live"`
		Datasets  []struct {
			Name            string           `json:"name"`
			Mode            string           `json:"mode"`
			Entries         []map[string]any `json:"entries"`
			TraversalErrors *uint64          `json:"traversal_errors"`
		} `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))

	assert.Equal(t, "tank", doc.Target)
	assert.True(t, doc.AllowLive)
	require.Len(t, doc.Datasets, 2)
	assert.Equal(t, "live", doc.Datasets[0].Mode)
	assert.Equal(t, "snapshot", doc.Datasets[1].Mode)
	assert.NotNil(t, doc.Datasets[1].Entries)
	assert.Empty(t, doc.Datasets[1].Entries)
	require.NotNil(t, doc.Datasets[1].TraversalErrors)
}
