package river

import (
	"io"
	"time"

	json "github.com/goccy/go-json"
)

// Document is the published summary of all stations.
type Document struct {
	UTCTime  time.Time         `json:"utc_time"`
	Stations []StationDocument `json:"stations"`
}

// StationDocument is one station entry of a Document. Error is set instead
// of the readings when the station could not be processed.
type StationDocument struct {
	Name                 string     `json:"name"`
	URL                  string     `json:"url,omitempty"`
	TopOfNormalRangeM    float64    `json:"top_of_normal_range_m"`
	HighestEverRecordedM float64    `json:"highest_ever_recorded_m"`
	YAxisBottomM         float64    `json:"y_axis_bottom_m"`
	YAxisTopM            float64    `json:"y_axis_top_m"`
	TopOfGraphM          float64    `json:"top_of_graph_m"`
	NormalPct            int        `json:"normal_pct"`
	RecordPct            int        `json:"record_pct"`
	FirstTimestamp       *time.Time `json:"first_timestamp_utc,omitempty"`
	LastTimestamp        *time.Time `json:"last_timestamp_utc,omitempty"`
	HeightsM             []float64  `json:"heights_m,omitempty"`
	Error                string     `json:"error,omitempty"`
}

// OK reports whether the station carries readings.
func (s *StationDocument) OK() bool {
	return s.Error == "" && len(s.HeightsM) > 0
}

// Encode writes the document as indented JSON.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Marshal returns the indented JSON encoding of the document.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// DecodeDocument reads a document written by Encode.
func DecodeDocument(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}
