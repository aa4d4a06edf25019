package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinYAML []byte

// Builtin loads the embedded built-in modifier catalog.
func Builtin() (*Catalog, error) {
	var doc struct {
		Modifiers []Modifier `yaml:"modifiers"`
	}
	if err := yaml.Unmarshal(builtinYAML, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal builtin catalog: %w", err)
	}
	return New(doc.Modifiers)
}
