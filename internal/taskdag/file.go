// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package taskdag

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/errors"

	"gopkg.in/yaml.v3"
)

// Load reads a DAG from a YAML file. ${database} and ${schema} in task
// definitions expand to the deployment target. The config's schedule and
// warehouse fill fields the file leaves unset.
func Load(path string, cfg config.DAG) (*DAG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "read DAG file", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var d DAG
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrap(errors.DAGInvalid, fmt.Sprintf("parse DAG file %s", path), err)
	}

	if d.Warehouse == "" {
		d.Warehouse = cfg.Warehouse
	}
	if d.ScheduleMinutes == 0 {
		d.ScheduleMinutes = cfg.ScheduleMinutes
	}
	r := strings.NewReplacer("${database}", cfg.Database, "${schema}", cfg.Schema)
	for i := range d.Tasks {
		d.Tasks[i].Definition = r.Replace(d.Tasks[i].Definition)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Resolve returns the DAG from cfg.File when set, otherwise the built-in ETL DAG.
func Resolve(cfg config.DAG) (*DAG, error) {
	if cfg.File != "" {
		return Load(cfg.File, cfg)
	}
	return ETLEmployee(cfg), nil
}
