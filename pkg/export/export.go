// Package export writes decision log records in formats operators can load
// into spreadsheets or downstream tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/coldchain/core/decisionlog"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType is the HTTP media type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Write encodes records in format f.
func Write(w io.Writer, f Format, records []decisionlog.Record) error {
	if f == FormatCSV {
		return WriteCSV(w, records)
	}
	return WriteJSON(w, records)
}

// WriteJSON writes the records, bundles included, as a JSON array.
func WriteJSON(w io.Writer, records []decisionlog.Record) error {
	if records == nil {
		records = []decisionlog.Record{}
	}
	return json.NewEncoder(w).Encode(records)
}

// WriteCSV writes one row per record. Bundles are omitted.
func WriteCSV(w io.Writer, records []decisionlog.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "timestamp", "kind", "target", "blended_days", "trust_score", "cargo_value"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			string(r.Kind),
			r.Target,
			strconv.FormatFloat(r.BlendedDays, 'f', -1, 64),
			strconv.FormatFloat(r.TrustScore, 'f', -1, 64),
			strconv.FormatFloat(r.CargoValue, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
