// Package dataset holds extraction records and their CSV and XLSX forms.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Alisasanian/PDFsorter/constants"
)

// Header is the exact CSV header row.
var Header = []string{"pdf_name", "page_number", "drawing_number", "A_or_G"}

// Record is the drawing number found on one page. An empty DrawingNumber means none was found.
type Record struct {
	PDFName       string
	Page          int // 1-based
	DrawingNumber string
	Priority      bool
}

// Found reports whether the page yielded a drawing number.
func (r Record) Found() bool { return r.DrawingNumber != "" }

// HasPriority reports whether any record is priority classified.
func HasPriority(recs []Record) bool {
	for _, r := range recs {
		if r.Priority {
			return true
		}
	}
	return false
}

// DocumentFileName is the per-document CSV name. Documents without any priority
// record go to the unsorted variant.
func DocumentFileName(name string, hasPriority bool) string {
	if hasPriority {
		return name + constants.DatasetSuffix
	}
	return name + constants.UnsortedSuffix
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.PDFName,
			strconv.Itoa(r.Page),
			r.DrawingNumber,
			formatBool(r.Priority),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteCSVFile writes recs to path, replacing any existing file.
func WriteCSVFile(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, recs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV parses a dataset. The header must match Header.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("dataset header: %w", err)
	}
	head[0] = strings.TrimPrefix(head[0], "\ufeff")
	for i, h := range Header {
		if strings.TrimSpace(head[i]) != h {
			return nil, fmt.Errorf("dataset: unexpected header %v", head)
		}
	}

	var recs []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)
		page, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil || page < 1 {
			return nil, fmt.Errorf("dataset line %d: invalid page number %q", line, row[1])
		}
		prio := false
		if s := strings.TrimSpace(row[3]); s != "" {
			if prio, err = strconv.ParseBool(s); err != nil {
				return nil, fmt.Errorf("dataset line %d: invalid A_or_G %q", line, row[3])
			}
		}
		recs = append(recs, Record{
			PDFName:       row[0],
			Page:          page,
			DrawingNumber: strings.TrimSpace(row[2]),
			Priority:      prio,
		})
	}
}

// ReadCSVFile reads the dataset at path.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}
