package bvmconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a biology parameter file at path, strictly decodes it (unknown
// fields are rejected, spec §9's "reject unknown fields"), merges it over
// the built-in defaults section by section, validates the result, and
// resolves it into the concrete subsystem Configs. Passing an empty path
// returns the built-in defaults unmerged and unvalidated-against-a-file —
// still passed through validate, since Builtin() must itself be valid.
func Load(path string) (Resolved, error) {
	log := slog.With("component", "bvmconfig")

	if path == "" {
		doc := Builtin()
		if err := validate(doc); err != nil {
			return Resolved{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		return resolve(doc), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Resolved{}, &LoadError{File: path, Err: ErrConfigNotFound}
		}
		return Resolved{}, &LoadError{File: path, Err: err}
	}

	var user Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&user); err != nil && !errors.Is(err, io.EOF) {
		return Resolved{}, &LoadError{File: path, Err: fmt.Errorf("%w: %v", ErrInvalidYAML, err)}
	}

	merged := mergeDocuments(Builtin(), &user)
	if err := validate(merged); err != nil {
		return Resolved{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("biology config loaded",
		"path", path,
		"cell_lines", len(merged.CellLines),
		"seeding_presets", len(merged.Seeding))

	return resolve(merged), nil
}
