// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"os"
	"strings"

	"github.com/braidhq/braid/pkg/errors"
)

// Load reads a workflow definition from a YAML file.
func Load(path string) (*Workflow, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.CodeProtocol, "workflow path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "read workflow file", err)
	}
	return ParseYAML(data)
}
