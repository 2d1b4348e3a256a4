package sentiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// recordFields is the column count of a data row: id, topic, sentiment, text.
const recordFields = 4

var errNoRecords = errors.New("no records")

// LoadRecords reads a header-less id,topic,sentiment,text CSV file. Any row
// with the wrong number of columns fails the whole file.
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Path = path
			return nil, dle
		}
		return nil, &DataLoadError{Path: path, Err: err}
	}
	return records, nil
}

// ReadRecords parses records from r. See LoadRecords.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = recordFields
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &DataLoadError{Line: pe.Line, Err: pe.Err}
			}
			return nil, &DataLoadError{Err: err}
		}
		records = append(records, Record{
			ID:        row[0],
			Topic:     row[1],
			Sentiment: row[2],
			Text:      row[3],
		})
	}
	if len(records) == 0 {
		return nil, &DataLoadError{Err: errNoRecords}
	}
	return records, nil
}

// WriteRecords writes records in the format ReadRecords accepts.
func WriteRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	for _, rec := range records {
		if err := cw.Write([]string{rec.ID, rec.Topic, rec.Sentiment, rec.Text}); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Texts returns the raw text of each record.
func Texts(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

// Sentiments returns the label of each record.
func Sentiments(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Sentiment
	}
	return out
}
