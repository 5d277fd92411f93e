package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/openclaw/clawtrace/rollout/trace"
)

// Summary counts an export run. Processed covers every trace file
// enumerated; Skipped covers unreadable records and zero-yield rollouts.
type Summary struct {
	Processed int
	Skipped   int
	Written   int
}

// Export reads every trace in the store, in lexical key order, and writes
// one JSONL row per extractable rollout. Unreadable or zero-yield records
// are skipped with a log line, never an error: a corrupt trace must not
// block the rest of the corpus. When nothing is extractable, no output file
// is created.
func Export(store *trace.Store, outPath string) (Summary, error) {
	var summary Summary

	paths, err := store.List()
	if err != nil {
		return summary, err
	}
	if len(paths) == 0 {
		logrus.Warnf("no rollout traces found under %s (nothing to export)", store.Dir())
		return summary, nil
	}

	var examples []*Example
	for _, path := range paths {
		summary.Processed++
		rec, err := store.Load(path)
		if err != nil {
			logrus.Warnf("skipping %s: %v", filepath.Base(path), err)
			summary.Skipped++
			continue
		}
		example, ok := Extract(rec)
		if !ok {
			logrus.Debugf("skipping %s: no reconstructible round", filepath.Base(path))
			summary.Skipped++
			continue
		}
		examples = append(examples, example)
	}

	if len(examples) == 0 {
		logrus.Warn("no SFT samples from trace reconstruction; " +
			"ensure rollouts emit round spans (e.g. gateway returns messages)")
		return summary, nil
	}

	file, err := os.Create(outPath)
	if err != nil {
		return summary, fmt.Errorf("creating dataset file: %w", err)
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	for _, example := range examples {
		if err := encoder.Encode(example); err != nil {
			return summary, fmt.Errorf("writing dataset row: %w", err)
		}
		summary.Written++
	}
	return summary, nil
}
