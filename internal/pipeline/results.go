package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScoreString formats a score the way every text output renders it.
func ScoreString(s float32) string { return strconv.FormatFloat(float64(s), 'f', 6, 32) }

// ToJSON serializes a result to indented JSON.
func ToJSON(res *DecodeResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAML serializes a result to YAML.
func ToYAML(res *DecodeResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := yaml.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText lists one "text<TAB>score" line per sequence.
func ToPlainText(res *DecodeResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	for _, s := range res.Sequences {
		sb.WriteString(s.Text)
		sb.WriteByte('\t')
		sb.WriteString(ScoreString(s.Score))
		sb.WriteByte('\n')
	}
	if res.Greedy != nil {
		fmt.Fprintf(&sb, "# greedy: %q confidence=%.3f agrees=%t\n",
			res.Greedy.Text, res.Greedy.Confidence, res.Greedy.AgreesWithBeam)
	}
	return sb.String(), nil
}

// ToCSV exports the ranked sequences with a header row.
func ToCSV(res *DecodeResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"rank", "text", "score", "timesteps"})
	for i, s := range res.Sequences {
		_ = w.Write([]string{strconv.Itoa(i + 1), s.Text, ScoreString(s.Score), joinInts(s.Timesteps)})
	}
	w.Flush()
	return buf.String(), w.Error()
}

// Format renders a result in one of text, json, csv or yaml.
func Format(res *DecodeResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return ToPlainText(res)
	case "json":
		return ToJSON(res)
	case "csv":
		return ToCSV(res)
	case "yaml", "yml":
		return ToYAML(res)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, " ")
}

// ValidateDecodeResult checks the ordering and bounds a decode guarantees.
func ValidateDecodeResult(res *DecodeResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	for i, s := range res.Sequences {
		if !(s.Score > 0 && s.Score <= 1) {
			return fmt.Errorf("sequence %d score %v out of (0, 1]", i, s.Score)
		}
		if i > 0 && s.Score > res.Sequences[i-1].Score {
			return fmt.Errorf("sequence %d scores above its predecessor", i)
		}
		if len(s.Labels) != len(s.Timesteps) {
			return fmt.Errorf("sequence %d has %d labels but %d timesteps", i, len(s.Labels), len(s.Timesteps))
		}
		for k, t := range s.Timesteps {
			if t < 0 || t >= res.Timesteps || (k > 0 && t <= s.Timesteps[k-1]) {
				return fmt.Errorf("sequence %d has invalid timestep %d", i, t)
			}
		}
	}
	return nil
}
