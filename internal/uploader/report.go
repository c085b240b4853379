package uploader

import (
	"time"

	"nmrupload/internal/acdata"
)

// DatasetResult records one created dataset.
type DatasetResult struct {
	Dir   string            `json:"dir"`
	Title string            `json:"title"`
	Files int               `json:"files"`
	ID    acdata.Identifier `json:"id,omitempty"`
}

// SampleResult records the outcome for one sample directory. Datasets holds
// the datasets created before any failure.
type SampleResult struct {
	Dir      string            `json:"dir"`
	Name     string            `json:"name"`
	SampleID acdata.Identifier `json:"sample_id,omitempty"`
	Datasets []DatasetResult   `json:"datasets"`
	Err      error             `json:"-"`
	Error    string            `json:"error,omitempty"`
}

// OK reports whether every dataset of the sample was created.
func (r SampleResult) OK() bool { return r.Err == nil }

// Report summarizes a run.
type Report struct {
	RunID    string         `json:"run_id"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
	Samples  []SampleResult `json:"samples"`
	// Canceled is set when the context ended the run before every sample
	// was attempted.
	Canceled bool `json:"canceled,omitempty"`
}

// Failed returns the samples that stopped on an error.
func (r Report) Failed() []SampleResult {
	var out []SampleResult
	for _, s := range r.Samples {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Succeeded returns the samples whose datasets were all created.
func (r Report) Succeeded() []SampleResult {
	var out []SampleResult
	for _, s := range r.Samples {
		if s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// DatasetsCreated counts datasets created across all samples, including
// those created before a sample failed.
func (r Report) DatasetsCreated() int {
	total := 0
	for _, s := range r.Samples {
		total += len(s.Datasets)
	}
	return total
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
