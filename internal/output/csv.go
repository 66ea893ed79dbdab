// Package output serializes digest records to delimited files.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/henrybloomingdale/pubmed-digest/internal/digest"
)

// WriteRecordsCSV creates or truncates path and writes the header followed
// by one row per record, in order.
func WriteRecordsCSV(path string, records []digest.Record) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeRecords(w, records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing CSV file: %w", err)
	}
	return nil
}

// WriteRecords writes the CSV header and records to out.
func WriteRecords(out io.Writer, records []digest.Record) error {
	return writeRecords(newWriter(out), records)
}

func writeRecords(w *csv.Writer, records []digest.Record) error {
	if err := w.Write(digest.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func createCSV(path string) (*csv.Writer, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating CSV file: %w", err)
	}
	return newWriter(f), f, nil
}

// newWriter returns a CSV writer ending rows with CRLF, matching digests
// produced by earlier versions of the tool.
func newWriter(out io.Writer) *csv.Writer {
	w := csv.NewWriter(out)
	w.UseCRLF = true
	return w
}
