package montage

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Options configures an entity at construction. Keys must be declared in the
// defaults of the entity's type or one of its ancestor types.
type Options map[string]any

// declaredDefaults holds the option defaults of every type tag. A type's
// defaults are the union of its own and its ancestors', the most specific
// tag winning on conflicts.
var declaredDefaults = map[string]Options{
	"movie": {
		"width":       640.0,
		"height":      360.0,
		"background":  ColorBlack,
		"repeat":      false,
		"autoRefresh": true,
	},
	"layer": {
		"enabled": true,
	},
	"layer.visual": {
		"x":          0.0,
		"y":          0.0,
		"width":      nil,
		"height":     nil,
		"opacity":    1.0,
		"background": nil,
		"blendMode":  BlendNormal,
	},
	"layer.visual.image": {
		"clipX":      0.0,
		"clipY":      0.0,
		"clipWidth":  nil,
		"clipHeight": nil,
		"destX":      0.0,
		"destY":      0.0,
		"destWidth":  nil,
		"destHeight": nil,
	},
	"layer.visual.image.video": {
		"volume":         1.0,
		"muted":          false,
		"mediaStartTime": 0.0,
	},
	"layer.visual.text": {
		"text":  "",
		"color": ColorWhite,
		"textX": 0.0,
		"textY": 0.0,
	},
	"layer.audio": {
		"volume":         1.0,
		"muted":          false,
		"mediaStartTime": 0.0,
	},
	"effect": {
		"enabled": true,
	},
	"effect.brightness": {"brightness": 0.0},
	"effect.contrast":   {"contrast": 1.0},
	"effect.saturation": {"saturation": 1.0},
	"effect.grayscale":  {},
	"effect.colormatrix": {
		"matrix": identityColorMatrix,
	},
	"effect.blur": {"radius": 0.0},
	"effect.outline": {
		"thickness": 1.0,
		"color":     ColorBlack,
	},
	"effect.shader": {"uniforms": nil},
	"effect.stack":  {},
}

// RegisterDefaults declares the options accepted by entities of type typ.
// Custom layer and effect types call it once, typically from init. Ancestor
// defaults ("layer", "effect", ...) are inherited and need not be repeated.
func RegisterDefaults(typ string, defaults Options) {
	declaredDefaults[typ] = defaults
}

// defaultsFor merges the defaults declared along typ's chain, most general
// first so that specific tags override their ancestors.
func defaultsFor(typ string) Options {
	chain := typeChain(typ)
	out := Options{}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range declaredDefaults[chain[i]] {
			out[k] = v
		}
	}
	return out
}

// --- YAML ---

// LoadOptions decodes a YAML mapping into Options. Integers become float64 so
// they interpolate like any other number. Two tags are understood:
//
//	opacity: !keyframes [[0, 0], [2, 1, outQuad]]
//	background: !color [0.1, 0.1, 0.2]
//
// The result is checked against declared defaults by the entity constructor,
// not here.
func LoadOptions(data []byte) (Options, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	if doc.Kind == 0 {
		return Options{}, nil
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("load options: line %d: expected a mapping", root.Line)
	}
	opts := make(Options, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		v, err := decodeValue(val)
		if err != nil {
			return nil, fmt.Errorf("load options: %s: %w", key.Value, err)
		}
		opts[key.Value] = v
	}
	return opts, nil
}

// decodeValue converts a YAML node into the value types the resolver and
// interpolators work with.
func decodeValue(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!keyframes":
		ks := &KeyframeSet{}
		if err := ks.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return ks, nil
	case "!color":
		var c []float64
		if err := node.Decode(&c); err != nil {
			return nil, fmt.Errorf("line %d: color: %w", node.Line, err)
		}
		switch len(c) {
		case 3:
			return Color{c[0], c[1], c[2], 1}, nil
		case 4:
			return Color{c[0], c[1], c[2], c[3]}, nil
		}
		return nil, fmt.Errorf("line %d: color needs 3 or 4 components, got %d", node.Line, len(c))
	}

	switch node.Kind {
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	case yaml.MappingNode:
		m := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := decodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[node.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		s := make([]any, len(node.Content))
		for i, child := range node.Content {
			v, err := decodeValue(child)
			if err != nil {
				return nil, err
			}
			s[i] = v
		}
		return s, nil
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	if n, ok := v.(int); ok {
		return float64(n), nil
	}
	return v, nil
}
