package veneer

import (
	"bytes"
	"encoding/json"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// File formats accepted by [LoadFile], chosen by extension.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FormatOf returns the file format for path's extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unsupported veneer file %q (want .toml, .yaml or .json)", path)
}

// LoadFile reads a flat option map from a TOML, YAML or JSON file and builds
// a veneer from it.
func LoadFile(path string) (Veneer, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Veneer{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Veneer{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read veneer file")
	}
	opts, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return Veneer{}, err
	}
	return Build(opts)
}

// Decode reads a flat option map in the given format.
func Decode(r io.Reader, format string) (map[string]any, error) {
	opts := map[string]any{}
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&opts)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&opts)
		if err == io.EOF {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		err = dec.Decode(&opts)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported veneer format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s veneer", format)
	}
	return opts, nil
}

// Encode writes the options of v in the given format. Unset options are
// left out, since TOML has no null.
func (v Veneer) Encode(w io.Writer, format string) error {
	opts := v.Options()
	maps.DeleteFunc(opts, func(_ string, val any) bool { return val == nil })

	var err error
	switch format {
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(opts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(opts); err == nil {
			err = enc.Close()
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(opts)
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported veneer format %q", format)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s veneer", format)
	}
	return nil
}
