// Package batchfile parses batch definition files into feature queues.
//
// Two formats are accepted: a YAML document listing features with optional
// dependencies and issue numbers, and a markdown checklist where every
// unchecked "- [ ]" item becomes one feature. Plain text files fall back to
// one feature per non-empty line.
package batchfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CodexForgeBR/batch-loop/internal/state"
)

// Document is the YAML batch file layout.
type Document struct {
	Features []Entry `yaml:"features"`
}

// Entry is one feature in a YAML batch file.
type Entry struct {
	Description string   `yaml:"description"`
	DependsOn   []string `yaml:"depends_on"`
	Issue       int      `yaml:"issue"`
}

// Parse reads a batch file and returns the pending feature queue.
// Format is chosen by extension: .yaml/.yml parse as YAML, everything else
// as a markdown checklist or plain lines.
func Parse(path string) ([]state.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return parseYAML(data)
	}
	return parseLines(data)
}

func parseYAML(data []byte) ([]state.Feature, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse batch yaml: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("batch file lists no features")
	}

	features := make([]state.Feature, 0, len(doc.Features))
	for i, e := range doc.Features {
		desc := strings.TrimSpace(e.Description)
		if desc == "" {
			return nil, fmt.Errorf("feature %d has an empty description", i)
		}
		features = append(features, state.Feature{
			Description: desc,
			Status:      state.FeaturePending,
			IssueNumber: e.Issue,
			DependsOn:   e.DependsOn,
		})
	}
	return features, nil
}

// parseLines handles markdown checklists and plain text. Checked items
// ("- [x]") are already done and are loaded as skipped so the batch summary
// still accounts for them.
func parseLines(data []byte) ([]state.Feature, error) {
	var features []state.Feature

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "- [ ]"):
			desc := strings.TrimSpace(strings.TrimPrefix(line, "- [ ]"))
			if desc != "" {
				features = append(features, state.Feature{Description: desc, Status: state.FeaturePending})
			}
		case strings.HasPrefix(line, "- [x]"), strings.HasPrefix(line, "- [X]"):
			desc := strings.TrimSpace(line[5:])
			if desc != "" {
				features = append(features, state.Feature{Description: desc, Status: state.FeatureSkipped})
			}
		case strings.HasPrefix(line, "- "):
			features = append(features, state.Feature{Description: strings.TrimSpace(line[2:]), Status: state.FeaturePending})
		default:
			features = append(features, state.Feature{Description: line, Status: state.FeaturePending})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch lines: %w", err)
	}

	if len(features) == 0 {
		return nil, fmt.Errorf("batch file lists no features")
	}
	return features, nil
}
