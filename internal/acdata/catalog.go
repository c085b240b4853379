package acdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Instrument is one selectable instrument, tagged with its instrument class.
type Instrument struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class,omitempty"`
}

// Label renders the instrument the way the picker shows it.
func (i Instrument) Label() string {
	if i.Class == "" {
		return i.Name
	}
	return fmt.Sprintf("(%s) %s", i.Class, i.Name)
}

// Experiment belongs to a project.
type Experiment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project is a project the user owns or collaborates on.
type Project struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Experiments []Experiment `json:"experiments"`
	Role        string       `json:"role,omitempty"`
}

// HasExperiment reports whether id names one of the project's experiments.
func (p Project) HasExperiment(id int64) bool {
	for _, e := range p.Experiments {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Instruments lists instruments across all classes ordered by id.
func (c *Client) Instruments(ctx context.Context, session Session) ([]Instrument, error) {
	data, err := c.get(ctx, session, ResourceInstruments)
	if err != nil {
		return nil, err
	}
	return DecodeInstruments(data)
}

// DecodeInstruments flattens an instruments response body.
func DecodeInstruments(data []byte) ([]Instrument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var payload struct {
		Instruments map[string][]Instrument `json:"instruments"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode instruments response: %w", err)
	}
	var out []Instrument
	for class, list := range payload.Instruments {
		for _, inst := range list {
			inst.Class = class
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Projects lists owned and collaborating projects ordered by id.
func (c *Client) Projects(ctx context.Context, session Session) ([]Project, error) {
	data, err := c.get(ctx, session, ResourceProjects)
	if err != nil {
		return nil, err
	}
	return DecodeProjects(data)
}

// DecodeProjects merges the owner and collaborator lists of a projects
// response. A project listed in both keeps its owner role.
func DecodeProjects(data []byte) ([]Project, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var payload struct {
		Owner        []Project `json:"owner"`
		Collaborator []Project `json:"collaborator"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode projects response: %w", err)
	}
	byID := make(map[int64]Project, len(payload.Owner)+len(payload.Collaborator))
	for _, p := range payload.Collaborator {
		p.Role = "collaborator"
		byID[p.ID] = p
	}
	for _, p := range payload.Owner {
		p.Role = "owner"
		byID[p.ID] = p
	}
	out := make([]Project, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindInstrument looks up an instrument by id.
func FindInstrument(list []Instrument, id int64) (Instrument, bool) {
	for _, inst := range list {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instrument{}, false
}

// FindProject looks up a project by id.
func FindProject(list []Project, id int64) (Project, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}
