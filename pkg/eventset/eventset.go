// Package eventset implements the declarative event-set catalog described
// in spec.md §4.2 (C2): named bundles of field->marker mappings and field
// transforms, resolved per event into a deterministic enrichment.
package eventset

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sswlabs/foundation/pkg/fvalue"
)

// Transform is a field-level redaction/transform rule (spec.md §3 EventSet).
type Transform string

const (
	TransformKeep     Transform = "keep"
	TransformRedact   Transform = "redact"
	TransformTruncate Transform = "truncate"
	TransformHash     Transform = "hash"
)

// Mapping is one match rule within an EventSet: when event[MatchField] ==
// MatchValue, Marker is added to the output's marker sequence and Overlay
// fields are merged into the enrichment.
type Mapping struct {
	MatchField string
	MatchValue fvalue.Value
	Marker     string
	Overlay    map[string]fvalue.Value
}

// FieldTransform pairs a field name with the transform applied to it.
type FieldTransform struct {
	Field     string
	Transform Transform
	// TruncateLen is kept on the definition (LoadCatalogFile reads it from
	// truncate_len), but Resolve does not pass it on: pkg/pipeline cuts
	// every truncate-transformed field at 32 bytes regardless of it.
	TruncateLen int
}

// EventSet is a named, immutable-after-registration declarative unit
// (spec.md §3 EventSet).
type EventSet struct {
	Name       string
	Priority   int
	Mappings   []Mapping
	Transforms []FieldTransform
}

// Enrichment is the output of Resolve: an ordered marker sequence (lowest
// priority first), merged overlay fields, and the per-field transform to
// apply during rendering.
type Enrichment struct {
	Markers    []string
	Overlay    map[string]fvalue.Value
	Transforms map[string]Transform
}

// fileEventSet/fileMapping/fileTransform mirror EventSet's shape with
// plain YAML-decodable field types, since fvalue.Value keeps its fields
// unexported and cannot be unmarshaled directly.
type fileEventSet struct {
	Name       string          `yaml:"name"`
	Priority   int             `yaml:"priority"`
	Mappings   []fileMapping   `yaml:"mappings"`
	Transforms []fileTransform `yaml:"transforms"`
}

type fileMapping struct {
	MatchField string                 `yaml:"match_field"`
	MatchValue interface{}            `yaml:"match_value"`
	Marker     string                 `yaml:"marker"`
	Overlay    map[string]interface{} `yaml:"overlay"`
}

type fileTransform struct {
	Field       string `yaml:"field"`
	Transform   string `yaml:"transform"`
	TruncateLen int    `yaml:"truncate_len"`
}

// LoadCatalogFile reads a declarative list of event sets from a YAML file,
// the on-disk analogue of RegisterEventSet for deployments that prefer
// shipping event-set definitions alongside configuration rather than
// compiling them in. Grounded on the teacher's internal/config.go pattern
// of yaml.Unmarshal-ing a declarative pipelines file into typed steps.
func LoadCatalogFile(path string) ([]EventSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []fileEventSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	sets := make([]EventSet, 0, len(raw))
	for _, fe := range raw {
		es := EventSet{Name: fe.Name, Priority: fe.Priority}
		for _, fm := range fe.Mappings {
			matchValue, _ := fvalue.From(fm.MatchValue)
			var overlay map[string]fvalue.Value
			if len(fm.Overlay) > 0 {
				overlay = make(map[string]fvalue.Value, len(fm.Overlay))
				for k, v := range fm.Overlay {
					val, _ := fvalue.From(v)
					overlay[k] = val
				}
			}
			es.Mappings = append(es.Mappings, Mapping{
				MatchField: fm.MatchField,
				MatchValue: matchValue,
				Marker:     fm.Marker,
				Overlay:    overlay,
			})
		}
		for _, ft := range fe.Transforms {
			es.Transforms = append(es.Transforms, FieldTransform{
				Field:       ft.Field,
				Transform:   Transform(ft.Transform),
				TruncateLen: ft.TruncateLen,
			})
		}
		sets = append(sets, es)
	}
	return sets, nil
}

// Catalog holds registered EventSets and resolves events against them. It
// takes no lock: the Hub fills a fresh Catalog inside Initialize and never
// registers into it afterwards, so Resolve only ever reads. Register is not
// safe to call concurrently with Resolve.
type Catalog struct {
	sets []*EventSet // registration order preserved
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{}
}

// Register appends event set es. Order of registration matters only as a
// tiebreak for equal-priority mappings (spec.md §4.2 step 2).
func (c *Catalog) Register(es EventSet) {
	copied := es
	copied.Mappings = append([]Mapping(nil), es.Mappings...)
	copied.Transforms = append([]FieldTransform(nil), es.Transforms...)
	c.sets = append(c.sets, &copied)
}

// Discover returns the registered event sets in registration order.
func (c *Catalog) Discover() []EventSet {
	out := make([]EventSet, len(c.sets))
	for i, s := range c.sets {
		out[i] = *s
	}
	return out
}

// candidateMatch records a single matched mapping for conflict resolution.
type candidateMatch struct {
	setIndex int // registration order, used as the tiebreak
	priority int
	mapping  *Mapping
}

// Resolve evaluates every registered event set's mappings against event and
// returns the merged enrichment. Resolution never mutates event.
//
// Conflict rule (spec.md §4.2 step 2): when two matches would set the same
// overlay key, the higher-priority match wins; ties are broken by
// registration order with the later registration winning.
func (c *Catalog) Resolve(event *fvalue.OrderedMap) Enrichment {
	var matches []candidateMatch
	for idx, es := range c.sets {
		for i := range es.Mappings {
			m := &es.Mappings[i]
			fieldVal, ok := event.Get(m.MatchField)
			if !ok || !fvalue.Equal(fieldVal, m.MatchValue) {
				continue
			}
			matches = append(matches, candidateMatch{
				setIndex: idx,
				priority: es.Priority,
				mapping:  m,
			})
		}
	}

	// Stable sort by ascending priority, ties by ascending registration
	// order; this makes both the marker ordering (ascending priority) and
	// the "last wins among ties" overlay rule a single linear scan.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].priority != matches[j].priority {
			return matches[i].priority < matches[j].priority
		}
		return matches[i].setIndex < matches[j].setIndex
	})

	enrichment := Enrichment{
		Overlay:    make(map[string]fvalue.Value),
		Transforms: make(map[string]Transform),
	}
	overlayPriority := make(map[string]int)
	overlaySetIndex := make(map[string]int)

	for _, match := range matches {
		if match.mapping.Marker != "" {
			enrichment.Markers = append(enrichment.Markers, match.mapping.Marker)
		}
		for field, val := range match.mapping.Overlay {
			prevPriority, seen := overlayPriority[field]
			if !seen || match.priority > prevPriority ||
				(match.priority == prevPriority && match.setIndex >= overlaySetIndex[field]) {
				enrichment.Overlay[field] = val
				overlayPriority[field] = match.priority
				overlaySetIndex[field] = match.setIndex
			}
		}
	}

	// Transforms: higher-priority event set's transform for a field wins,
	// ties broken the same way as overlay fields.
	transformPriority := make(map[string]int)
	transformSetIndex := make(map[string]int)
	for idx, es := range c.sets {
		for _, ft := range es.Transforms {
			prevPriority, seen := transformPriority[ft.Field]
			if !seen || es.Priority > prevPriority ||
				(es.Priority == prevPriority && idx >= transformSetIndex[ft.Field]) {
				enrichment.Transforms[ft.Field] = ft.Transform
				transformPriority[ft.Field] = es.Priority
				transformSetIndex[ft.Field] = idx
			}
		}
	}

	return enrichment
}
