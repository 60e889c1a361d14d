// Package master loads the authoritative drawing order.
package master

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/drawingno"
)

// SheetNumberField is the record field holding the drawing identifier in JSON exports.
const SheetNumberField = "Sheet Number"

// List is the ordered authoritative entries and what loading dropped.
type List struct {
	Source  string
	Entries []string
	Rows    int // rows read, including dropped ones
	Dropped int // rows without an identifier
}

// Load reads the master list at path, choosing the format from its extension.
// sheet selects the XLSX worksheet; empty means the first one.
func Load(path, sheet string) (List, error) {
	if strings.TrimSpace(path) == "" {
		return List{}, common.NoInputError("master ordering source")
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.MasterExtensions[ext]; !ok {
		return List{}, fmt.Errorf("master %s: unsupported extension %q: %w", path, ext, common.ErrInvalidInput)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return List{}, common.NoInputError("master ordering source " + path)
		}
		return List{}, err
	}

	var (
		l   List
		err error
	)
	switch ext {
	case "csv":
		l, err = loadCSV(path)
	case "xlsx":
		l, err = loadXLSX(path, sheet)
	case "json":
		l, err = loadJSON(path)
	}
	if err != nil {
		return List{}, fmt.Errorf("master %s: %w", path, err)
	}
	l.Source = path
	if len(l.Entries) == 0 {
		return l, common.NoInputError("drawing numbers in master " + path)
	}
	return l, nil
}

// FromCells extracts identifiers from free-text cells with the unlabeled cascade.
// Cells without one are dropped.
func FromCells(cells []string) List {
	c := drawingno.Unlabeled()
	l := List{Rows: len(cells)}
	for _, cell := range cells {
		m, ok := c.Extract(cell)
		if !ok {
			l.Dropped++
			continue
		}
		l.Entries = append(l.Entries, m.Number)
	}
	return l
}

func loadCSV(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return List{}, err
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (List, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var cells []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return List{}, err
		}
		if len(row) == 0 {
			continue
		}
		cells = append(cells, strings.TrimPrefix(row[0], "\ufeff"))
	}
	return FromCells(cells), nil
}

func loadXLSX(path, sheet string) (List, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return List{}, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return List{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return List{}, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	cells := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			cells = append(cells, "")
			continue
		}
		cells = append(cells, row[0])
	}
	return FromCells(cells), nil
}

type recordsDoc struct {
	Records []struct {
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

func loadJSON(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return List{}, err
	}
	defer f.Close()
	return readJSON(f)
}

// readJSON takes Sheet Number values as they are, apart from the O to 0 cleanup every
// other source gets, so JSON and CSV entries compare equal against the dataset.
func readJSON(r io.Reader) (List, error) {
	var doc recordsDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return List{}, fmt.Errorf("decode records: %w", err)
	}
	l := List{Rows: len(doc.Records)}
	for _, rec := range doc.Records {
		v, ok := rec.Fields[SheetNumberField]
		s := ""
		if ok && v != nil {
			s = drawingno.Clean(fmt.Sprint(v))
		}
		if s == "" {
			l.Dropped++
			continue
		}
		l.Entries = append(l.Entries, s)
	}
	return l, nil
}
