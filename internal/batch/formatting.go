package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type fileResult struct {
	File   string                 `json:"file" yaml:"file"`
	Result *pipeline.DecodeResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchDocument struct {
	Files []fileResult           `json:"files" yaml:"files"`
	Stats pipeline.ParallelStats `json:"stats" yaml:"stats"`
}

// formatBatchResults formats the batch results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		bts, err := json.MarshalIndent(document(r), "", "  ")
		return string(bts), err
	case "yaml", "yml":
		bts, err := yaml.Marshal(document(r))
		return string(bts), err
	case "csv":
		return formatCSV(r)
	case "", "text":
		return formatText(r)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func document(r *Result) batchDocument {
	errs := make(map[string]string, len(r.Failures))
	for _, f := range r.Failures {
		errs[f.Path] = f.Error
	}
	doc := batchDocument{Files: make([]fileResult, len(r.Paths)), Stats: r.Stats()}
	for i, path := range r.Paths {
		doc.Files[i] = fileResult{File: path, Error: errs[path]}
		if i < len(r.Results) {
			doc.Files[i].Result = r.Results[i]
		}
	}
	return doc
}

// formatCSV writes one row per returned sequence.
func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write([]string{"file", "rank", "text", "score"}); err != nil {
		return "", err
	}

	for i, res := range r.Results {
		if res == nil {
			continue
		}
		for rank, seq := range res.Sequences {
			row := []string{r.Paths[i], strconv.Itoa(rank), seq.Text, pipeline.ScoreString(seq.Score)}
			if err := writer.Write(row); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText writes a header per file followed by its plain-text result.
func formatText(r *Result) (string, error) {
	errs := make(map[string]string, len(r.Failures))
	for _, f := range r.Failures {
		errs[f.Path] = f.Error
	}

	var output strings.Builder
	for i, path := range r.Paths {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", path))
		if msg, ok := errs[path]; ok {
			output.WriteString(fmt.Sprintf("# error: %s\n", msg))
			continue
		}
		if i >= len(r.Results) || r.Results[i] == nil {
			continue
		}
		text, err := pipeline.ToPlainText(r.Results[i])
		if err != nil {
			return "", err
		}
		output.WriteString(text)
	}
	return output.String(), nil
}
