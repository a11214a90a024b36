package utils

import (
	"bufio"
	"encoding/csv"
	"io"

	. "eyeshield/internal/models"
)

// WriteRecordsCSV writes a header row followed by one line per record.
// Quoting follows RFC 4180, so delimiters, quotes and newlines inside a
// field survive a re-read. A CRLF inside a quoted field reads back as LF;
// screening intake stores notes with LF line endings.
func WriteRecordsCSV(w io.Writer, records []ScreeningRecord) error {
	const BufferSize = 64 * 1024
	writer := bufio.NewWriterSize(w, BufferSize)
	csvWriter := csv.NewWriter(writer)

	if err := csvWriter.Write(ScreeningRecordFields); err != nil {
		return exportErr("failed to write headers", err)
	}

	for _, record := range records {
		if err := csvWriter.Write(record.Values()); err != nil {
			return exportErr("failed to write record "+record.PatientID, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return exportErr("failed to flush csv writer", err)
	}
	if err := writer.Flush(); err != nil {
		return exportErr("failed to flush output", err)
	}

	return nil
}

func ExportCSVFile(path string, records []ScreeningRecord) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteRecordsCSV(w, records)
	})
}
