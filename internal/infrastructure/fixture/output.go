package fixture

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"screen-agent/internal/domain/entity"
)

type Format string

const (
	FormatTree Format = "tree"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTree, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want tree, json or yaml)", s)
}

// WriteResult encodes res as JSON or YAML. The tree format is rendered by
// the presenter, not here.
func WriteResult(w io.Writer, res *entity.CorrelatedResult, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	case FormatYAML:
		data, err := yaml.MarshalWithOptions(res, yaml.IndentSequence(true))
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("format %q is not a serialization format", format)
}
