// Package queries produces the natural-language recommendation questions
// asked of every provider for a profession/city pair.
package queries

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Count is the fixed number of queries per test run. The 4-of-5
// invisible-slot threshold in scoring depends on it; changing one without
// revisiting the other corrupts the eligibility gate, so the loader and
// config validation both enforce it.
const Count = 5

//go:embed templates.yaml
var templatesYAML []byte

type templateFile struct {
	Professions map[string][]string `yaml:"professions"`
	Default     []string            `yaml:"default"`
}

// Registry resolves query templates per profession.
type Registry struct {
	professions map[string][]string
	fallback    []string
}

// Load parses the embedded template file and checks that every template
// set has exactly Count entries.
func Load() (*Registry, error) {
	var tf templateFile
	if err := yaml.Unmarshal(templatesYAML, &tf); err != nil {
		return nil, eris.Wrap(err, "queries: parse templates")
	}
	if len(tf.Default) != Count {
		return nil, eris.Errorf("queries: default template set has %d entries, want %d", len(tf.Default), Count)
	}
	for prof, set := range tf.Professions {
		if len(set) != Count {
			return nil, eris.Errorf("queries: template set %q has %d entries, want %d", prof, len(set), Count)
		}
	}
	return &Registry{professions: tf.Professions, fallback: tf.Default}, nil
}

// For returns the Count queries for a profession/city pair, in stable
// order. Unknown professions use the default set with {profession}
// interpolated.
func (r *Registry) For(profession, city string) []string {
	key := strings.ToLower(strings.TrimSpace(profession))
	set, ok := r.professions[key]
	if !ok {
		set = r.fallback
	}

	out := make([]string, len(set))
	for i, tpl := range set {
		q := strings.ReplaceAll(tpl, "{profession}", profession)
		q = strings.ReplaceAll(q, "{city}", city)
		out[i] = q
	}
	return out
}
