// Package matrixio reads and writes probability matrices in JSON, CSV and
// YAML form.
//
// JSON and YAML accept either a nested array of rows or an object with an
// explicit shape and flat row-major data:
//
//	[[0.9, 0.1], [0.2, 0.8]]
//	{"shape": [2, 2], "data": [0.9, 0.1, 0.2, 0.8]}
//
// CSV holds one timestep per line; lines starting with '#' are comments.
package matrixio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"gopkg.in/yaml.v3"
)

// Format identifies a matrix file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// MaxFileSize bounds the size of matrix files accepted by Load.
const MaxFileSize = 64 << 20

// Extensions lists the file extensions recognized by FormatFromPath.
var Extensions = []string{".json", ".csv", ".yaml", ".yml"}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported matrix format %q", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer matrix format of %s", path)
	}
	return ParseFormat(ext)
}

// IsMatrixFile reports whether path has a recognized matrix extension.
func IsMatrixFile(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// document is the explicit shape/data schema shared by JSON and YAML.
type document struct {
	Shape []int     `json:"shape" yaml:"shape"`
	Data  []float32 `json:"data"  yaml:"data"`
}

// Load reads the matrix stored at path, inferring the format from its
// extension. The returned matrix owns a pooled buffer; call Release when done.
func Load(path string) (ctc.Matrix, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return ctc.Matrix{}, err
	}
	f, err := os.Open(path) //nolint:gosec // G304: user-provided matrix file
	if err != nil {
		return ctc.Matrix{}, fmt.Errorf("failed to open matrix: %w", err)
	}
	defer func() { _ = f.Close() }()
	m, err := Read(io.LimitReader(f, MaxFileSize+1), format)
	if err != nil {
		return ctc.Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Read decodes a matrix from r.
func Read(r io.Reader, format Format) (ctc.Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ctc.Matrix{}, fmt.Errorf("failed to read matrix: %w", err)
	}
	if len(data) > MaxFileSize {
		return ctc.Matrix{}, fmt.Errorf("matrix exceeds %d bytes", MaxFileSize)
	}
	return Decode(data, format)
}

// Decode parses an in-memory matrix document.
func Decode(data []byte, format Format) (ctc.Matrix, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatCSV:
		return decodeCSV(data)
	default:
		return ctc.Matrix{}, fmt.Errorf("unsupported matrix format %q", format)
	}
}

func decodeJSON(data []byte) (ctc.Matrix, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ctc.Matrix{}, errors.New("empty matrix document")
	}
	if trimmed[0] == '{' {
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return ctc.Matrix{}, fmt.Errorf("invalid JSON matrix: %w", err)
		}
		return fromDocument(doc)
	}
	var rows [][]float32
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return ctc.Matrix{}, fmt.Errorf("invalid JSON matrix: %w", err)
	}
	return ctc.NewMatrix(rows)
}

func decodeYAML(data []byte) (ctc.Matrix, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return ctc.Matrix{}, fmt.Errorf("invalid YAML matrix: %w", err)
	}
	if len(node.Content) == 0 {
		return ctc.Matrix{}, errors.New("empty matrix document")
	}
	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var doc document
		if err := root.Decode(&doc); err != nil {
			return ctc.Matrix{}, fmt.Errorf("invalid YAML matrix: %w", err)
		}
		return fromDocument(doc)
	}
	var rows [][]float32
	if err := root.Decode(&rows); err != nil {
		return ctc.Matrix{}, fmt.Errorf("invalid YAML matrix: %w", err)
	}
	return ctc.NewMatrix(rows)
}

func fromDocument(doc document) (ctc.Matrix, error) {
	if len(doc.Shape) != 2 {
		return ctc.Matrix{}, fmt.Errorf("shape must have 2 dimensions, got %d", len(doc.Shape))
	}
	rows, cols := doc.Shape[0], doc.Shape[1]
	if cols <= 0 {
		return ctc.Matrix{}, fmt.Errorf("invalid shape %v", doc.Shape)
	}
	size, ok := ctc.CheckedSize(int64(rows), int64(cols))
	if !ok {
		return ctc.Matrix{}, fmt.Errorf("invalid shape %v", doc.Shape)
	}
	if len(doc.Data) != size {
		return ctc.Matrix{}, fmt.Errorf("data length %d does not match shape %v", len(doc.Data), doc.Shape)
	}
	m := ctc.AllocMatrix(rows, cols)
	copy(m.Data, doc.Data)
	return m, nil
}

func decodeCSV(data []byte) (ctc.Matrix, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comment = '#'
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return ctc.Matrix{}, fmt.Errorf("invalid CSV matrix: %w", err)
	}
	rows := make([][]float32, 0, len(records))
	for i, rec := range records {
		row := make([]float32, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return ctc.Matrix{}, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			row[j] = float32(v)
		}
		rows = append(rows, row)
	}
	return ctc.NewMatrix(rows)
}
