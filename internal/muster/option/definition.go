package option

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/louisbranch/musterpoint/internal/errors"
	"github.com/louisbranch/musterpoint/internal/muster/catalog"
)

// Definition is the tagged definition of a session's option set: exactly one
// of BuiltIn (a preset id) or Custom (an explicit option list) must be set.
type Definition struct {
	BuiltIn string
	Custom  []Option
}

var (
	// ErrDefinitionAmbiguous indicates neither or both definition variants were set.
	ErrDefinitionAmbiguous = apperrors.New(apperrors.CodeOptionSetDefinitionAmbiguous, "exactly one of built-in or custom option set is required")
	// ErrUnknownPreset indicates a built-in preset id is not known.
	ErrUnknownPreset = apperrors.New(apperrors.CodeOptionSetUnknownPreset, "unknown built-in option set")
	// ErrEmptySet indicates a definition resolved to zero options.
	ErrEmptySet = apperrors.New(apperrors.CodeOptionSetEmpty, "option set must contain at least one option")
)

// Resolve turns a definition into an immutable option set, validating every
// option against the modifier catalog.
func (d Definition) Resolve(cat *catalog.Catalog) (Set, error) {
	builtIn := strings.TrimSpace(d.BuiltIn)
	if (builtIn == "") == (len(d.Custom) == 0) {
		return Set{}, ErrDefinitionAmbiguous
	}

	options := d.Custom
	if builtIn != "" {
		presets, err := builtinPresets()
		if err != nil {
			return Set{}, err
		}
		preset, ok := presets[builtIn]
		if !ok {
			return Set{}, ErrUnknownPreset
		}
		options = preset
	}

	return newSet(options, cat)
}

func newSet(options []Option, cat *catalog.Catalog) (Set, error) {
	if len(options) == 0 {
		return Set{}, ErrEmptySet
	}

	set := Set{index: make(map[string]int, len(options))}
	for _, opt := range options {
		key := strings.TrimSpace(opt.Key)
		if key == "" {
			return Set{}, apperrors.New(apperrors.CodeOptionSetDuplicateKey, "option key is required")
		}
		if _, dup := set.index[key]; dup {
			return Set{}, apperrors.WithMetadata(apperrors.CodeOptionSetDuplicateKey, "duplicate option key", map[string]string{"key": key})
		}
		if opt.Kind == KindUnspecified {
			return Set{}, apperrors.WithMetadata(apperrors.CodeOptionSetUnknownKind, "option kind is required", map[string]string{"key": key})
		}
		for _, tag := range opt.QualifierCandidates {
			if _, ok := cat.Get(tag); !ok {
				return Set{}, apperrors.WithMetadata(apperrors.CodeOptionSetUnknownTag, "unknown qualifier tag", map[string]string{"key": key, "tag": tag})
			}
		}
		opt.Key = key
		if opt.Display.Name == "" {
			opt.Display.Name = key
		}
		set.index[key] = len(set.options)
		set.options = append(set.options, opt)
	}
	return set, nil
}

//go:embed presets.yaml
var presetsYAML []byte

type presetOption struct {
	Key        string      `yaml:"key"`
	Kind       string      `yaml:"kind"`
	Display    DisplayMeta `yaml:"display"`
	Qualifiers []string    `yaml:"qualifiers"`
}

var (
	presetsOnce sync.Once
	presetsMap  map[string][]Option
	presetsErr  error
)

// builtinPresets parses the embedded preset definitions once.
func builtinPresets() (map[string][]Option, error) {
	presetsOnce.Do(func() {
		var doc struct {
			Presets map[string][]presetOption `yaml:"presets"`
		}
		if err := yaml.Unmarshal(presetsYAML, &doc); err != nil {
			presetsErr = fmt.Errorf("unmarshal builtin presets: %w", err)
			return
		}
		presetsMap = make(map[string][]Option, len(doc.Presets))
		for name, raw := range doc.Presets {
			options := make([]Option, 0, len(raw))
			for _, entry := range raw {
				options = append(options, Option{
					Key:                 entry.Key,
					Kind:                ParseKind(entry.Kind),
					Display:             entry.Display,
					QualifierCandidates: entry.Qualifiers,
				})
			}
			presetsMap[name] = options
		}
	})
	return presetsMap, presetsErr
}
