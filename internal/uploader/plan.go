package uploader

import (
	"errors"
	"strings"

	"nmrupload/internal/acdata"
	"nmrupload/internal/nmr"
)

// SampleDirectory is a sample directory and its dataset directories.
type SampleDirectory = nmr.SampleDirectory

// Plan is a fully resolved upload run.
type Plan struct {
	Session      acdata.Session
	ProjectID    string
	ExperimentID string
	InstrumentID string
	Description  string
	Samples      []SampleDirectory
}

// Validate checks that the plan names everything a run needs.
func (p Plan) Validate() error {
	var errs []error
	if !p.Session.Valid() {
		errs = append(errs, acdata.ErrNoSession)
	}
	if strings.TrimSpace(p.ProjectID) == "" {
		errs = append(errs, errors.New("project id is required"))
	}
	if strings.TrimSpace(p.InstrumentID) == "" {
		errs = append(errs, errors.New("instrument id is required"))
	}
	return errors.Join(errs...)
}

// DatasetCount returns the number of dataset directories across all samples.
func (p Plan) DatasetCount() int {
	total := 0
	for _, sample := range p.Samples {
		total += len(sample.Datasets)
	}
	return total
}
