package dataset

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Dataset"

// ExportXLSX returns the records as an XLSX workbook. Priority rows are highlighted.
func ExportXLSX(recs []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	headStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	prioStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF2CC"}},
	})
	if err != nil {
		return nil, err
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(SheetName, "A1", "D1", headStyle)

	for i, r := range recs {
		first := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetName, first, &[]any{r.PDFName, r.Page, r.DrawingNumber, formatBool(r.Priority)}); err != nil {
			return nil, err
		}
		if r.Priority {
			_ = f.SetCellStyle(SheetName, first, fmt.Sprintf("D%d", i+2), prioStyle)
		}
	}
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	_ = f.SetColWidth(SheetName, "A", "A", 40) // pdf name
	_ = f.SetColWidth(SheetName, "B", "B", 12)
	_ = f.SetColWidth(SheetName, "C", "C", 22)
	_ = f.SetColWidth(SheetName, "D", "D", 8)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSXFile writes the workbook to path.
func ExportXLSXFile(path string, recs []Record) error {
	b, err := ExportXLSX(recs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
