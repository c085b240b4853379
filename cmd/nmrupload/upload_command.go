package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"nmrupload/internal/acdata"
	"nmrupload/internal/nmr"
	"nmrupload/internal/prompt"
	"nmrupload/internal/runlock"
	"nmrupload/internal/uploader"
)

type uploadOptions struct {
	auth         authFlags
	dir          string
	instrumentID string
	projectID    string
	experimentID string
	description  string
	yes          bool
	strict       bool
	asJSON       bool
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	opts := &uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Create a sample and its datasets from a directory of NMR experiments",
		Long: "Create one sample named after the directory and one dataset per\n" +
			"experiment directory (any child holding a pdata map). Values not given\n" +
			"as flags or in the config file are asked for interactively.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	opts.auth.bind(cmd)
	flags.StringVarP(&opts.dir, "directory", "d", "", "Parent directory containing the NMR data directories, e.g. Gyro/data/abc/nmr/YYYYMMDD-abc")
	flags.StringVarP(&opts.instrumentID, "instrument_id", "i", "", "Instrument the datasets were created on")
	flags.StringVarP(&opts.projectID, "project_id", "p", "", "Project to add the samples to")
	flags.StringVarP(&opts.experimentID, "experiment_id", "e", "", "Experiment within the project")
	flags.StringVar(&opts.description, "description", "", "Description for created samples")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation before importing")
	flags.BoolVar(&opts.strict, "strict", false, "Exit non-zero when any sample fails")
	flags.BoolVar(&opts.asJSON, "json", false, "Print the run report as JSON")
	return cmd
}

func runUpload(cmd *cobra.Command, ctx *commandContext, opts *uploadOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	p := ctx.prompter(cmd)
	stderr := cmd.ErrOrStderr()

	dir, err := resolveSourceDir(p, opts.dir)
	if err != nil {
		return err
	}
	samples, err := nmr.Discover(dir)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(stderr, "No suitable NMR directories found")
		return nil
	}

	p.Println()
	p.Println("Samples/datasets to be imported: ")
	for _, sample := range samples {
		p.Println(strings.Join(sample.Datasets, "\n"))
	}
	p.Println()
	if !opts.yes {
		ok, err := p.Confirm("Proceed with import?")
		if err != nil {
			return missingInput("confirmation", "--yes", err)
		}
		if !ok {
			return nil
		}
	}

	lock, err := runlock.Acquire(cfg.Paths.LogDir, dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	client, err := ctx.newClient(opts.auth.url)
	if err != nil {
		return err
	}
	session, err := ctx.session(cmd.Context(), cmd, client, opts.auth)
	if err != nil {
		return err
	}

	plan := uploader.Plan{
		Session:     session,
		Description: firstNonEmpty(opts.description, cfg.Upload.Description),
		Samples:     samples,
	}
	if plan.InstrumentID, err = chooseInstrument(cmd.Context(), p, client, session, firstNonEmpty(opts.instrumentID, cfg.Upload.InstrumentID)); err != nil {
		return err
	}
	project, err := chooseProject(cmd.Context(), p, client, session, firstNonEmpty(opts.projectID, cfg.Upload.ProjectID))
	if err != nil {
		return err
	}
	plan.ProjectID = strconv.FormatInt(project.ID, 10)
	if plan.ExperimentID, err = chooseExperiment(p, project, firstNonEmpty(opts.experimentID, cfg.Upload.ExperimentID)); err != nil {
		return err
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	// Progress lines would corrupt the JSON report on stdout.
	progress := cmd.OutOrStdout()
	if opts.asJSON {
		progress = stderr
	}
	up := uploader.New(client,
		uploader.WithLogger(logger),
		uploader.WithProgress(progress),
		uploader.WithErrorOutput(stderr),
	)
	report := up.Run(cmd.Context(), plan)

	if opts.asJSON {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report)
	}

	if report.Canceled {
		return context.Canceled
	}
	if failed := len(report.Failed()); failed > 0 && opts.strict {
		return fmt.Errorf("%d of %d samples failed", failed, len(report.Samples))
	}
	return nil
}

func resolveSourceDir(p *prompt.Prompter, dir string) (string, error) {
	for !isDir(dir) {
		if dir != "" {
			p.Println(fmt.Sprintf("%s is not a directory", dir))
		}
		p.Println()
		p.Println("Enter the directory containing the NMR data directories.")
		p.Println("E.g. Gyro/data/abc/nmr/YYMMDD-aaa")
		p.Println()
		answer, err := p.Ask("NMR directory")
		if err != nil {
			return "", missingInput("directory", "-d", err)
		}
		dir = answer
	}
	return dir, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func chooseInstrument(ctx context.Context, p *prompt.Prompter, client *acdata.Client, session acdata.Session, given string) (string, error) {
	instruments, err := client.Instruments(ctx, session)
	if err != nil {
		return "", fmt.Errorf("list instruments: %w", err)
	}
	valid := func(answer string) error {
		id, err := strconv.ParseInt(strings.TrimSpace(answer), 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an instrument id", answer)
		}
		if _, ok := acdata.FindInstrument(instruments, id); !ok {
			return fmt.Errorf("instrument %d is not in the list", id)
		}
		return nil
	}
	if given != "" && valid(given) == nil {
		return strings.TrimSpace(given), nil
	}
	if len(instruments) == 0 {
		return "", errors.New("no instruments are available to this account")
	}

	p.Println()
	p.Println("Enter the ID of the instrument your datasets were created from:")
	p.Println()
	for _, inst := range instruments {
		p.Println(fmt.Sprintf("%4d : %s", inst.ID, inst.Label()))
	}
	answer, err := p.AskUntil("Instrument ID", valid)
	if err != nil {
		return "", missingInput("instrument id", "-i", err)
	}
	return strings.TrimSpace(answer), nil
}

func chooseProject(ctx context.Context, p *prompt.Prompter, client *acdata.Client, session acdata.Session, given string) (acdata.Project, error) {
	projects, err := client.Projects(ctx, session)
	if err != nil {
		return acdata.Project{}, fmt.Errorf("list projects: %w", err)
	}
	lookup := func(answer string) (acdata.Project, error) {
		id, err := strconv.ParseInt(strings.TrimSpace(answer), 10, 64)
		if err != nil {
			return acdata.Project{}, fmt.Errorf("%q is not a project id", answer)
		}
		project, ok := acdata.FindProject(projects, id)
		if !ok {
			return acdata.Project{}, fmt.Errorf("project %d is not in the list", id)
		}
		return project, nil
	}
	if given != "" {
		if project, err := lookup(given); err == nil {
			return project, nil
		}
	}
	if len(projects) == 0 {
		return acdata.Project{}, errors.New("no projects are available to this account")
	}

	p.Println()
	p.Println("Enter the ID of the project to add your samples/datasets to:")
	p.Println()
	for _, project := range projects {
		p.Println(fmt.Sprintf("%5d : %s", project.ID, project.Name))
	}
	answer, err := p.AskUntil("Project ID", func(answer string) error {
		_, err := lookup(answer)
		return err
	})
	if err != nil {
		return acdata.Project{}, missingInput("project id", "-p", err)
	}
	return lookup(answer)
}

// chooseExperiment is only asked when the project has experiments. An empty
// answer, or no input at all, skips the experiment.
func chooseExperiment(p *prompt.Prompter, project acdata.Project, given string) (string, error) {
	if len(project.Experiments) == 0 {
		return "", nil
	}
	valid := func(answer string) error {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return nil
		}
		id, err := strconv.ParseInt(answer, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an experiment id", answer)
		}
		if !project.HasExperiment(id) {
			return fmt.Errorf("experiment %d is not part of project %d", id, project.ID)
		}
		return nil
	}
	if given != "" && valid(given) == nil {
		return strings.TrimSpace(given), nil
	}

	p.Println()
	p.Println("Enter the ID of the experiment to add your samples/datasets to:")
	p.Println()
	for _, e := range project.Experiments {
		p.Println(fmt.Sprintf("%5d : %s", e.ID, e.Name))
	}
	answer, err := p.AskUntil("Experiment ID [Enter to skip]", valid)
	if errors.Is(err, prompt.ErrNoInput) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func printReport(cmd *cobra.Command, report uploader.Report) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Samples))
	for _, s := range report.Samples {
		status := "ok"
		if !s.OK() {
			status = "failed"
		}
		rows = append(rows, []string{s.Name, string(s.SampleID), strconv.Itoa(len(s.Datasets)), status})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(out,
			[]string{"Sample", "Sample ID", "Datasets", "Status"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Created %s in %d of %d samples (%s, run %s)\n",
		english.Plural(report.DatasetsCreated(), "dataset", ""),
		len(report.Succeeded()), len(report.Samples),
		report.Duration().Round(10*time.Millisecond), report.RunID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
