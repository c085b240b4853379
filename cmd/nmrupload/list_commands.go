package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nmrupload/internal/acdata"
)

func newInstrumentsCommand(ctx *commandContext) *cobra.Command {
	var auth authFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "List instruments datasets can be attributed to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient(auth.url)
			if err != nil {
				return err
			}
			session, err := ctx.session(cmd.Context(), cmd, client, auth)
			if err != nil {
				return err
			}
			instruments, err := client.Instruments(cmd.Context(), session)
			if err != nil {
				return fmt.Errorf("list instruments: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, instruments)
			}
			out := cmd.OutOrStdout()
			if len(instruments) == 0 {
				fmt.Fprintln(out, "No instruments available")
				return nil
			}
			fmt.Fprintln(out, renderTable(out, []string{"ID", "Class", "Name"}, instrumentRows(instruments), []columnAlignment{alignRight}))
			return nil
		},
	}
	auth.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func instrumentRows(instruments []acdata.Instrument) [][]string {
	rows := make([][]string, 0, len(instruments))
	for _, inst := range instruments {
		rows = append(rows, []string{strconv.FormatInt(inst.ID, 10), inst.Class, inst.Name})
	}
	return rows
}

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	var auth authFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects and their experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient(auth.url)
			if err != nil {
				return err
			}
			session, err := ctx.session(cmd.Context(), cmd, client, auth)
			if err != nil {
				return err
			}
			projects, err := client.Projects(cmd.Context(), session)
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, projects)
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects available")
				return nil
			}
			fmt.Fprintln(out, renderTable(out, []string{"ID", "Name", "Role", "Experiments"}, projectRows(projects), []columnAlignment{alignRight}))
			return nil
		},
	}
	auth.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func projectRows(projects []acdata.Project) [][]string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		experiments := make([]string, 0, len(p.Experiments))
		for _, e := range p.Experiments {
			experiments = append(experiments, fmt.Sprintf("%d %s", e.ID, e.Name))
		}
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, p.Role, strings.Join(experiments, ", ")})
	}
	return rows
}

func newSamplesCommand(ctx *commandContext) *cobra.Command {
	var auth authFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "List samples visible to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient(auth.url)
			if err != nil {
				return err
			}
			session, err := ctx.session(cmd.Context(), cmd, client, auth)
			if err != nil {
				return err
			}
			result, err := client.List(cmd.Context(), session, acdata.ResourceSamples)
			if err != nil {
				return fmt.Errorf("list samples: %w", err)
			}
			rows, ok := sampleRows(result)
			if asJSON || !ok {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No samples available")
				return nil
			}
			fmt.Fprintln(out, renderTable(out, []string{"ID", "Name", "Description"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	auth.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// sampleRows flattens a samples listing. The response is either a bare array
// or an object wrapping one under "samples"; anything else is shown as JSON.
func sampleRows(result any) ([][]string, bool) {
	if result == nil {
		return nil, true
	}
	list, ok := result.([]any)
	if !ok {
		obj, isObj := result.(map[string]any)
		if !isObj {
			return nil, false
		}
		if list, ok = obj["samples"].([]any); !ok {
			return nil, false
		}
	}
	rows := make([][]string, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rec := acdata.Record(obj)
		id, _ := rec.ID()
		rows = append(rows, []string{string(id), rec.String("name"), rec.String("description")})
	}
	sort.SliceStable(rows, func(i, j int) bool { return idLess(rows[i][0], rows[j][0]) })
	return rows, true
}

func idLess(a, b string) bool {
	na, errA := json.Number(a).Int64()
	nb, errB := json.Number(b).Int64()
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
