package utils

import (
	"io"

	. "eyeshield/internal/models"

	"github.com/xuri/excelize/v2"
)

const XLSXSheetName = "Screenings"

var xlsxColumnWidths = map[string]float64{
	"patient_id":    20,
	"name":          24,
	"birthdate":     12,
	"contact":       22,
	"diabetes_type": 14,
	"notes":         40,
	"result":        18,
	"confidence":    20,
}

// WriteRecordsXLSX writes the same columns as the CSV export into a single
// sheet. Age and duration are numeric cells; everything else is text.
func WriteRecordsXLSX(w io.Writer, records []ScreeningRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", XLSXSheetName); err != nil {
		return exportErr("failed to name sheet", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return exportErr("failed to create header style", err)
	}

	header := make([]any, len(ScreeningRecordFields))
	for i, field := range ScreeningRecordFields {
		header[i] = field
		if width, ok := xlsxColumnWidths[field]; ok {
			column, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return exportErr("failed to resolve column", err)
			}
			if err := f.SetColWidth(XLSXSheetName, column, column, width); err != nil {
				return exportErr("failed to set column width", err)
			}
		}
	}
	if err := f.SetSheetRow(XLSXSheetName, "A1", &header); err != nil {
		return exportErr("failed to write header", err)
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(ScreeningRecordFields), 1)
	if err != nil {
		return exportErr("failed to resolve header range", err)
	}
	if err := f.SetCellStyle(XLSXSheetName, "A1", lastHeader, headerStyle); err != nil {
		return exportErr("failed to style header", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return exportErr("failed to resolve row", err)
		}
		row := xlsxRow(record)
		if err := f.SetSheetRow(XLSXSheetName, cell, &row); err != nil {
			return exportErr("failed to write record "+record.PatientID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return exportErr("failed to write workbook", err)
	}

	return nil
}

func xlsxRow(record ScreeningRecord) []any {
	values := record.Values()
	row := make([]any, len(values))
	for i, value := range values {
		row[i] = value
	}

	if record.Age != nil {
		row[3] = *record.Age
	}
	row[8] = record.DurationYears

	return row
}

func ExportXLSXFile(path string, records []ScreeningRecord) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteRecordsXLSX(w, records)
	})
}
