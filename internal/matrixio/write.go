package matrixio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"gopkg.in/yaml.v3"
)

// Rows copies m into a slice of rows.
func Rows(m ctc.Matrix) [][]float32 {
	rows := make([][]float32, m.Rows)
	for t := range m.Rows {
		rows[t] = append([]float32(nil), m.Row(t)...)
	}
	return rows
}

// Write encodes m to w. JSON and YAML use the nested-rows form.
func Write(w io.Writer, m ctc.Matrix, format Format) error {
	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(Rows(m))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Rows(m)); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		cw := csv.NewWriter(w)
		record := make([]string, m.Cols)
		for t := range m.Rows {
			for k, v := range m.Row(t) {
				record[k] = strconv.FormatFloat(float64(v), 'g', -1, 32)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported matrix format %q", format)
	}
}

// Save writes m to path in the format implied by its extension.
func Save(path string, m ctc.Matrix) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: caller-chosen output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, m, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
