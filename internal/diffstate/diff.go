// Package diffstate renders structural diffs between two persisted
// session snapshots (pkg/ink.Save output), grounded on the teacher's
// own `graft diff` subcommand in cmd/graft/main.go, which loads two
// YAML documents with ytbx and compares them with dyff.
package diffstate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
)

// Diff compares two raw snapshot blobs (as produced by pkg/ink.Save)
// and returns the structural diff report between them. Snapshots are
// in-memory, so unlike the teacher's file-path-driven diffFiles, this
// spools each side to a temp file first: ytbx's loader works off paths,
// and a snapshot is small enough that this costs nothing observable.
func Diff(oldSnapshot, newSnapshot []byte) (*dyff.Report, error) {
	fromPath, err := spool("inkweave-diff-from-*.yml", oldSnapshot)
	if err != nil {
		return nil, err
	}
	defer os.Remove(fromPath)

	toPath, err := spool("inkweave-diff-to-*.yml", newSnapshot)
	if err != nil {
		return nil, err
	}
	defer os.Remove(toPath)

	from, to, err := ytbx.LoadFiles(fromPath, toPath)
	if err != nil {
		return nil, fmt.Errorf("load snapshots for diff: %w", err)
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return nil, fmt.Errorf("compare snapshots: %w", err)
	}
	return &report, nil
}

// Changed reports whether report contains any differences.
func Changed(report *dyff.Report) bool {
	return report != nil && len(report.Diffs) > 0
}

// Render renders report the way the teacher's `graft diff` does: a
// human-readable, colorized-by-default text report with the dyff
// banner header omitted (a snapshot diff is embedded in a session
// transcript, not a standalone CLI report).
func Render(report *dyff.Report) (string, error) {
	writer := &dyff.HumanReport{
		Report:            *report,
		DoNotInspectCerts: false,
		NoTableStyle:      false,
		OmitHeader:        true,
	}

	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	if err := writer.WriteReport(out); err != nil {
		return "", fmt.Errorf("render diff report: %w", err)
	}
	if err := out.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func spool(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("spool snapshot: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("spool snapshot: %w", err)
	}
	return f.Name(), nil
}
