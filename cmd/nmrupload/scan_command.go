package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"nmrupload/internal/nmr"
)

type datasetPreview struct {
	Dir        string `json:"dir"`
	Title      string `json:"title"`
	Companions int    `json:"companions"`
	Files      int    `json:"files"`
	Bytes      uint64 `json:"bytes"`
}

type samplePreview struct {
	Dir      string           `json:"dir"`
	Name     string           `json:"name"`
	Datasets []datasetPreview `json:"datasets"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Show what an upload of a directory would send",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				dir = "."
			}
			samples, err := nmr.Discover(dir)
			if err != nil {
				return err
			}
			previews, err := previewSamples(samples)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, previews)
			}
			out := cmd.OutOrStdout()
			if len(previews) == 0 {
				fmt.Fprintln(out, "No suitable NMR directories found")
				return nil
			}
			var (
				rows       [][]string
				totalFiles int
				totalBytes uint64
			)
			for _, sample := range previews {
				for _, ds := range sample.Datasets {
					rows = append(rows, []string{
						sample.Name,
						filepath.Base(ds.Dir),
						ds.Title,
						strconv.Itoa(ds.Companions),
						strconv.Itoa(ds.Files),
						humanize.Bytes(ds.Bytes),
					})
					totalFiles += ds.Files
					totalBytes += ds.Bytes
				}
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Sample", "Dir", "Dataset", "JCAMP", "Files", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d datasets, %s files, %s\n", len(rows), humanize.Comma(int64(totalFiles)), humanize.Bytes(totalBytes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "directory", "d", "", "Parent directory containing the NMR data directories")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func previewSamples(samples []nmr.SampleDirectory) ([]samplePreview, error) {
	out := make([]samplePreview, 0, len(samples))
	for _, sample := range samples {
		preview := samplePreview{Dir: sample.Path, Name: sample.Name()}
		for _, dir := range sample.Datasets {
			title, err := nmr.ExtractTitle(dir)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", dir, err)
			}
			companions, err := nmr.CompanionFiles(dir)
			if err != nil {
				return nil, err
			}
			files, size, err := treeSize(dir)
			if err != nil {
				return nil, err
			}
			// Companions live inside the dataset directory and are sent twice.
			for _, c := range companions {
				if n, err := fileSize(c); err == nil {
					size += n
				}
			}
			preview.Datasets = append(preview.Datasets, datasetPreview{
				Dir:        dir,
				Title:      title,
				Companions: len(companions),
				Files:      files + len(companions),
				Bytes:      size,
			})
		}
		out = append(out, preview)
	}
	return out, nil
}

// treeSize counts the files under dir and their total size.
func treeSize(dir string) (int, uint64, error) {
	var (
		files int
		size  uint64
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("measure %s: %w", dir, err)
	}
	return files, size, nil
}

func fileSize(path string) (uint64, error) {
	_, size, err := treeSize(path)
	return size, err
}
