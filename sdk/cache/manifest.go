// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"os"
	"sync"

	"sigs.k8s.io/yaml"
)

// Manifest records every local path materialized during this process, in
// resolution order, for a downstream packaging step. Adds are idempotent and
// nothing is ever removed.
type Manifest struct {
	mu    sync.Mutex
	paths []string
	seen  map[string]struct{}
}

// Default is the process-wide manifest shared by the download services.
var Default = &Manifest{}

func (m *Manifest) Add(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	if _, ok := m.seen[path]; ok {
		return
	}
	m.seen[path] = struct{}{}
	m.paths = append(m.paths, path)
}

// List returns a copy of the recorded paths in insertion order.
func (m *Manifest) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// WriteFile serializes the manifest as YAML for the packaging collaborator.
func (m *Manifest) WriteFile(path string) error {
	doc := struct {
		Resources []string `json:"resources"`
	}{Resources: m.List()}

	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
