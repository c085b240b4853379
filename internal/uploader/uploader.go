package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"nmrupload/internal/acdata"
	"nmrupload/internal/logging"
	"nmrupload/internal/nmr"
)

// ErrMissingID is returned when the server creates a sample without
// reporting its id.
var ErrMissingID = errors.New("create sample response has no id")

// Client is the subset of the ACData client used by a run.
type Client interface {
	CreateSample(ctx context.Context, session acdata.Session, params acdata.SampleParams) (acdata.Record, error)
	CreateDataset(ctx context.Context, session acdata.Session, params acdata.DatasetParams) (acdata.Record, error)
}

// Uploader executes plans against a Client.
type Uploader struct {
	client   Client
	logger   *slog.Logger
	progress io.Writer
	errOut   io.Writer
	newID    func() string
	now      func() time.Time
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithProgress sets the writer that receives per-dataset progress lines.
func WithProgress(w io.Writer) Option {
	return func(u *Uploader) {
		if w != nil {
			u.progress = w
		}
	}
}

// WithErrorOutput sets the writer that receives per-sample failure notices.
func WithErrorOutput(w io.Writer) Option {
	return func(u *Uploader) {
		if w != nil {
			u.errOut = w
		}
	}
}

// WithRunIDFunc overrides run id generation.
func WithRunIDFunc(fn func() string) Option {
	return func(u *Uploader) {
		if fn != nil {
			u.newID = fn
		}
	}
}

// New builds an Uploader. Progress and error output are discarded unless
// writers are supplied.
func New(client Client, opts ...Option) *Uploader {
	u := &Uploader{
		client:   client,
		logger:   logging.NewNop(),
		progress: io.Discard,
		errOut:   io.Discard,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = logging.NewComponentLogger(u.logger, "uploader")
	return u
}

// Run uploads every sample in plan. Per-sample failures are recorded in the
// report and never stop the run; only context cancellation does.
func (u *Uploader) Run(ctx context.Context, plan Plan) Report {
	report := Report{RunID: u.newID(), Started: u.now()}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, u.logger)
	logger.Info("upload run started",
		logging.Int("samples", len(plan.Samples)),
		logging.Int("datasets", plan.DatasetCount()),
		logging.String("project_id", plan.ProjectID),
		logging.String("instrument_id", plan.InstrumentID),
	)

	for _, sample := range plan.Samples {
		if ctx.Err() != nil {
			report.Canceled = true
			break
		}
		result := u.uploadSample(ctx, plan, sample)
		if result.Err != nil {
			result.Error = result.Err.Error()
			logging.WithContext(logging.WithSample(ctx, sample.Path), u.logger).Warn("sample import failed",
				logging.String("sample", result.Name),
				logging.Int("datasets_created", len(result.Datasets)),
				logging.Error(result.Err),
			)
			fmt.Fprintf(u.errOut, "Problem importing %s: %v\n", sample.Path, result.Err)
			fmt.Fprintln(u.errOut, "Will skip this one and continue")
		}
		report.Samples = append(report.Samples, result)
	}

	report.Finished = u.now()
	logger.Info("upload run finished",
		logging.Int("samples_ok", len(report.Succeeded())),
		logging.Int("samples_failed", len(report.Failed())),
		logging.Int("datasets_created", report.DatasetsCreated()),
		logging.Duration("elapsed", report.Duration()),
		logging.Bool("canceled", report.Canceled),
	)
	return report
}

func (u *Uploader) uploadSample(ctx context.Context, plan Plan, sample SampleDirectory) SampleResult {
	result := SampleResult{Dir: sample.Path, Name: filepath.Base(sample.Path)}
	ctx = logging.WithSample(ctx, sample.Path)
	logger := logging.WithContext(ctx, u.logger)

	record, err := u.client.CreateSample(ctx, plan.Session, acdata.SampleParams{
		ProjectID:    plan.ProjectID,
		ExperimentID: plan.ExperimentID,
		Name:         result.Name,
		Description:  plan.Description,
	})
	if err != nil {
		result.Err = fmt.Errorf("create sample %s: %w", result.Name, err)
		return result
	}
	sampleID, ok := record.ID()
	if !ok {
		result.Err = fmt.Errorf("create sample %s: %w", result.Name, ErrMissingID)
		return result
	}
	result.SampleID = sampleID
	logger.Info("sample created", logging.String("sample", result.Name), logging.String("sample_id", string(sampleID)))

	for _, dir := range sample.Datasets {
		dataset, err := u.uploadDataset(ctx, plan, result, dir)
		if err != nil {
			result.Err = err
			return result
		}
		result.Datasets = append(result.Datasets, dataset)
	}
	fmt.Fprintln(u.progress)
	return result
}

func (u *Uploader) uploadDataset(ctx context.Context, plan Plan, sample SampleResult, dir string) (DatasetResult, error) {
	title, err := nmr.ExtractTitle(dir)
	if err != nil {
		return DatasetResult{}, fmt.Errorf("dataset %s: %w", dir, err)
	}
	companions, err := nmr.CompanionFiles(dir)
	if err != nil {
		return DatasetResult{}, fmt.Errorf("dataset %s: %w", dir, err)
	}
	files := append(companions, dir)

	fmt.Fprintf(u.progress, "Creating dataset name: %s (under sample: %s)\n", title, sample.Name)
	record, err := u.client.CreateDataset(ctx, plan.Session, acdata.DatasetParams{
		Name:         title,
		InstrumentID: plan.InstrumentID,
		SampleID:     sample.SampleID,
		Files:        files,
	})
	if err != nil {
		return DatasetResult{}, fmt.Errorf("create dataset %q: %w", title, err)
	}

	result := DatasetResult{Dir: dir, Title: title, Files: len(files)}
	result.ID, _ = record.ID()
	logging.WithContext(logging.WithDataset(ctx, dir), u.logger).Info("dataset created",
		logging.String("title", title),
		logging.Int("companions", len(companions)),
		logging.String("dataset_id", string(result.ID)),
	)
	return result, nil
}
