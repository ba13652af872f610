package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freightops/afrmm/pkg/orchestrator"
)

// staticCEResolver answers with a fixed CE number, for runs where the
// operator supplies the CE directly.
type staticCEResolver struct {
	ceNumber string
}

func (r *staticCEResolver) ResolveCE(context.Context, string) (string, error) {
	return r.ceNumber, nil
}

// fileCEResolver maps freight process references to CE numbers from a
// YAML file maintained alongside the config:
//
//	IMP-2023-0042: "152305123456789"
type fileCEResolver struct {
	entries map[string]string
}

func newFileCEResolver(path string) (*fileCEResolver, error) {
	r := &fileCEResolver{entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read process map: %w", err)
	}
	if err := yaml.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("decode process map %s: %w", path, err)
	}
	return r, nil
}

func (r *fileCEResolver) ResolveCE(_ context.Context, processRef string) (string, error) {
	ce, ok := r.entries[strings.TrimSpace(processRef)]
	if !ok || ce == "" {
		return "", fmt.Errorf("process %s: %w", processRef, orchestrator.ErrCENotFound)
	}
	return ce, nil
}
