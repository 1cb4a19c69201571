package export

import (
	"context"
	"encoding/json"
	"io"

	"sitewatch-hq/sitewatch/pkg/report"
)

// JSONExporter exports run records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes run records to the writer in JSON format. A single record
// exports as an object, multiple records as an array.
func (e *JSONExporter) Export(ctx context.Context, records []*report.RunRecord, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var payload any = records
	if len(records) == 1 {
		payload = records[0]
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return report.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return report.NewExportError("json", len(records), err)
	}
	return nil
}
