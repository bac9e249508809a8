package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/idelchi/comphist/internal/comphist"
)

const (
	tableHeader = "Compression   Blocks     Block_%   Logical_B     Physical_B     Allocated_B  Ratio\n"
	tableRule   = "------------------------------------------------------------------------------------\n"
	tableRow    = "%-12s %12d %8.2f %14d %14d %14d %7.2f\n"

	// Decimal places in the structured report.
	percentPrecision = 4
	ratioPrecision   = 6
)

// DatasetResult is the histogram of one dataset in a per-dataset run.
type DatasetResult struct {
	Name string
	Hist *comphist.Histogram
}

func writeRow(buf *bytes.Buffer, name string, e comphist.Entry, percent float64) {
	fmt.Fprintf(buf, tableRow, name, e.Blocks, percent, e.LogicalBytes, e.PhysicalBytes, e.AllocatedBytes, e.Ratio())
}

// writeTable renders the histogram table and its conditional trailer lines.
func writeTable(buf *bytes.Buffer, hist *comphist.Histogram) {
	buf.WriteString(tableHeader)
	buf.WriteString(tableRule)

	hist.Each(func(id comphist.CompressionID, e comphist.Entry) {
		writeRow(buf, id.String(), e, hist.BlockPercent(e))
	})

	buf.WriteString(tableRule)

	total := hist.Total()
	percent := 0.0
	if total.Blocks > 0 {
		percent = 100
	}
	writeRow(buf, "total", total, percent)

	if hist.Holes > 0 {
		fmt.Fprintf(buf, "holes: %d\n", hist.Holes)
	}
	if hist.Redacted > 0 {
		fmt.Fprintf(buf, "redacted blocks: %d\n", hist.Redacted)
	}
	if hist.EmbeddedBlocks > 0 {
		fmt.Fprintf(buf, "embedded blocks: %d (logical bytes: %d)\n", hist.EmbeddedBlocks, hist.EmbeddedLogicalBytes)
	}
	if hist.UnknownCompression > 0 {
		fmt.Fprintf(buf, "unknown compression blocks: %d\n", hist.UnknownCompression)
	}
}

func writeTraversalErrors(buf *bytes.Buffer, hist *comphist.Histogram) {
	if hist.TraversalErrors > 0 {
		fmt.Fprintf(buf, "traversal errors: %d\n", hist.TraversalErrors)
	}
}

// modeTrailer is printed after text reports.
func modeTrailer(target string, opt comphist.Options) string {
	switch {
	case comphist.SnapshotMode(target):
		return "snapshot mode\n"
	case opt.AllowLive:
		return "live mode enabled\n"
	default:
		return ""
	}
}

func flush(buf *bytes.Buffer, writer io.Writer) error {
	_, err := buf.WriteTo(writer)

	return err
}

// PrintTable outputs one histogram as a fixed-width table.
func PrintTable(hist *comphist.Histogram, writer io.Writer) error {
	var buf bytes.Buffer

	writeTable(&buf, hist)

	return flush(&buf, writer)
}

// PrintSingleText outputs the aggregate report of a run.
func PrintSingleText(target string, opt comphist.Options, hist *comphist.Histogram, writer io.Writer) error {
	var buf bytes.Buffer

	writeTable(&buf, hist)
	writeTraversalErrors(&buf, hist)
	buf.WriteString(modeTrailer(target, opt))

	return flush(&buf, writer)
}

// PrintPerDatasetText outputs one table per dataset.
func PrintPerDatasetText(target string, opt comphist.Options, results []DatasetResult, writer io.Writer) error {
	var buf bytes.Buffer

	for i, r := range results {
		if i > 0 {
			buf.WriteString("\n")
		}

		fmt.Fprintf(&buf, "Dataset: %s\n", r.Name)
		writeTable(&buf, r.Hist)
		writeTraversalErrors(&buf, r.Hist)
	}

	if trailer := modeTrailer(target, opt); trailer != "" {
		buf.WriteString("\n")
		buf.WriteString(trailer)
	}

	return flush(&buf, writer)
}

// fixed is a float encoded with a fixed number of decimals.
type fixed struct {
	value     float64
	precision int
}

func (f fixed) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(f.value, 'f', f.precision, 64)), nil
}

type jsonEntry struct {
	Name           string `json:"name"`
	Blocks         uint64 `json:"blocks"`
	BlockPercent   fixed  `json:"block_percent"`
	LogicalBytes   uint64 `json:"logical_bytes"`
	PhysicalBytes  uint64 `json:"physical_bytes"`
	AllocatedBytes uint64 `json:"allocated_bytes"`
	Ratio          fixed  `json:"ratio"`
}

type jsonTotal struct {
	Blocks         uint64 `json:"blocks"`
	LogicalBytes   uint64 `json:"logical_bytes"`
	PhysicalBytes  uint64 `json:"physical_bytes"`
	AllocatedBytes uint64 `json:"allocated_bytes"`
	Ratio          fixed  `json:"ratio"`
}

// jsonStats is the histogram part shared by both document shapes.
type jsonStats struct {
	Entries                  []jsonEntry `json:"entries"`
	Total                    jsonTotal   `json:"total"`
	Holes                    uint64      `json:"holes"`
	EmbeddedBlocks           uint64      `json:"embedded_blocks"`
	EmbeddedLogicalBytes     uint64      `json:"embedded_logical_bytes"`
	RedactedBlocks           uint64      `json:"redacted_blocks"`
	UnknownCompressionBlocks uint64      `json:"unknown_compression_blocks"`
	TraversalErrors          uint64      `json:"traversal_errors"`
}

type singleDocument struct {
	Target     string `json:"target"`
	Mode       string `json:"mode"`
	BestEffort bool   `json:"best_effort"`
	jsonStats
}

type datasetDocument struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
	jsonStats
}

type perDatasetDocument struct {
	Target     string            `json:"target"`
	AllowLive  bool              `json:"allow_live"`
	BestEffort bool              `json:"best_effort"`
	Datasets   []datasetDocument `json:"datasets"`
}

func newJSONStats(hist *comphist.Histogram) jsonStats {
	entries := make([]jsonEntry, 0, comphist.NumCompressions)

	hist.Each(func(id comphist.CompressionID, e comphist.Entry) {
		entries = append(entries, jsonEntry{
			Name:           id.String(),
			Blocks:         e.Blocks,
			BlockPercent:   fixed{hist.BlockPercent(e), percentPrecision},
			LogicalBytes:   e.LogicalBytes,
			PhysicalBytes:  e.PhysicalBytes,
			AllocatedBytes: e.AllocatedBytes,
			Ratio:          fixed{e.Ratio(), ratioPrecision},
		})
	})

	return jsonStats{
		Entries: entries,
		Total: jsonTotal{
			Blocks:         hist.Blocks,
			LogicalBytes:   hist.LogicalBytes,
			PhysicalBytes:  hist.PhysicalBytes,
			AllocatedBytes: hist.AllocatedBytes,
			Ratio:          fixed{hist.TotalRatio(), ratioPrecision},
		},
		Holes:                    hist.Holes,
		EmbeddedBlocks:           hist.EmbeddedBlocks,
		EmbeddedLogicalBytes:     hist.EmbeddedLogicalBytes,
		RedactedBlocks:           hist.Redacted,
		UnknownCompressionBlocks: hist.UnknownCompression,
		TraversalErrors:          hist.TraversalErrors,
	}
}

func printJSON(doc any, writer io.Writer) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintSingleJSON outputs the aggregate report as JSON.
func PrintSingleJSON(target string, opt comphist.Options, hist *comphist.Histogram, writer io.Writer) error {
	return printJSON(singleDocument{
		Target:     target,
		Mode:       comphist.ModeName(target),
		BestEffort: opt.BestEffort,
		jsonStats:  newJSONStats(hist),
	}, writer)
}

// PrintPerDatasetJSON outputs one JSON document covering every dataset.
func PrintPerDatasetJSON(target string, opt comphist.Options, results []DatasetResult, writer io.Writer) error {
	doc := perDatasetDocument{
		Target:     target,
		AllowLive:  opt.AllowLive,
		BestEffort: opt.BestEffort,
		Datasets:   make([]datasetDocument, 0, len(results)),
	}

	for _, r := range results {
		doc.Datasets = append(doc.Datasets, datasetDocument{
			Name:      r.Name,
			Mode:      comphist.ModeName(r.Name),
			jsonStats: newJSONStats(r.Hist),
		})
	}

	return printJSON(doc, writer)
}
