package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"mapstick/pkg/binding"
)

var (
	ErrUnknownPreset      = errors.New("unknown preset")
	ErrUnsupportedVersion = errors.New("unsupported profile version")
	ErrMalformed          = errors.New("malformed profile document")
)

// Document is the flat, versioned exchange format. Bindings are keyed by the
// namespaced command key; a null binding means explicitly unbound.
type Document struct {
	ID       string                      `json:"id"`
	Name     string                      `json:"name"`
	Version  int                         `json:"version"`
	Bindings map[string]*binding.Binding `json:"bindings"`
	Labels   map[string]string           `json:"labels,omitempty"`
	Settings json.RawMessage             `json:"settings,omitempty"`
}

// Issue is a non-fatal problem found while importing.
type Issue struct {
	Key        string `json:"key"`
	Problem    string `json:"problem"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (i Issue) String() string {
	if i.Suggestion != "" {
		return fmt.Sprintf("%s: %s (did you mean %s?)", i.Key, i.Problem, i.Suggestion)
	}
	return i.Key + ": " + i.Problem
}

// Export encodes p as a current-version document.
func Export(p *Profile) ([]byte, error) {
	doc := Document{
		ID:       p.ID,
		Name:     p.Name,
		Version:  Version,
		Bindings: make(map[string]*binding.Binding),
		Labels:   make(map[string]string, len(p.Labels)),
	}
	for _, ctx := range binding.Contexts {
		for cmd, b := range p.Bindings[ctx] {
			b := b
			doc.Bindings[cmd.Key()] = &b
		}
	}
	for idx, label := range p.Labels {
		doc.Labels[strconv.Itoa(idx)] = label
	}
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	doc.Settings = settings
	return json.MarshalIndent(doc, "", "  ")
}

// Import decodes a document of any supported version. Bindings that cannot be
// applied are skipped and reported as issues; the last conflicting binding in
// key order wins. Missing settings fall back to the defaults field by field.
func Import(data []byte) (*Profile, []Issue, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Version > Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	settings := DefaultSettings()
	if len(doc.Settings) > 0 {
		if err := json.Unmarshal(doc.Settings, &settings); err != nil {
			return nil, nil, fmt.Errorf("%w: settings: %v", ErrMalformed, err)
		}
	}
	if doc.Version == 1 {
		// Version 1 predates time-normalized smoothing.
		settings.SmoothingMode = SmoothingFrame
	}

	p := &Profile{
		ID:       doc.ID,
		Name:     doc.Name,
		Bindings: binding.NewTable(),
		Labels:   make(map[int]string, len(doc.Labels)),
		Settings: settings.Normalize(),
	}
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Name == "" {
		p.Name = "imported"
	}

	var issues []Issue
	keys := make([]string, 0, len(doc.Bindings))
	for k := range doc.Bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b := doc.Bindings[key]
		cmd, ok := binding.ParseCommand(key)
		if !ok {
			issue := Issue{Key: key, Problem: "unknown command"}
			issue.Suggestion, _ = binding.Suggest(key)
			issues = append(issues, issue)
			continue
		}
		if b == nil {
			continue
		}
		tbl, displaced, err := p.Bindings.Assign(cmd, *b)
		if err != nil {
			issues = append(issues, Issue{Key: key, Problem: err.Error()})
			continue
		}
		p.Bindings = tbl
		for _, d := range displaced {
			issues = append(issues, Issue{Key: d.Key(), Problem: "displaced by " + key})
		}
	}

	for k, label := range doc.Labels {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			issues = append(issues, Issue{Key: "labels." + k, Problem: "label key is not a button index"})
			continue
		}
		p.Labels[idx] = label
	}
	return p, issues, nil
}
