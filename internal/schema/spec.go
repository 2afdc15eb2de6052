package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// FieldKind is the coercion rule applied to a canonical field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindDate    FieldKind = "date"
	KindDecimal FieldKind = "decimal"
	KindFloat   FieldKind = "float"
)

const (
	PurchaseOrders = "po"
	CoalRecords    = "coal"
)

//go:embed specs.yaml
var defaultSpecs []byte

type Field struct {
	Name     string    `yaml:"name"`
	Kind     FieldKind `yaml:"kind"`
	Synonyms []string  `yaml:"synonyms"`
}

// RecordSpec describes one record type: the canonical fields in order, their
// header synonyms, the coercion rule per field and the required field.
type RecordSpec struct {
	Name     string  `yaml:"-"`
	Category string  `yaml:"category"`
	Label    string  `yaml:"label"`
	Required string  `yaml:"required"`
	Fields   []Field `yaml:"fields"`
}

// FieldNames returns the keep-list in canonical order.
func (s *RecordSpec) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the declared field called name.
func (s *RecordSpec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *RecordSpec) validate() error {
	if s.Category == "" {
		return fmt.Errorf("spec %q: category is empty", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("spec %q: no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("spec %q: field without a name", s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("spec %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		switch f.Kind {
		case KindString, KindDate, KindDecimal, KindFloat:
		default:
			return fmt.Errorf("spec %q: field %q has unknown kind %q", s.Name, f.Name, f.Kind)
		}
		if len(f.Synonyms) == 0 {
			return fmt.Errorf("spec %q: field %q has no synonyms", s.Name, f.Name)
		}
	}
	if _, ok := s.Field(s.Required); !ok {
		return fmt.Errorf("spec %q: required field %q is not declared", s.Name, s.Required)
	}
	return nil
}

// Specs holds the record specs keyed by name.
type Specs map[string]*RecordSpec

// Get returns the named spec or an error naming the known ones.
func (s Specs) Get(name string) (*RecordSpec, error) {
	spec, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q (known: %v)", name, s.Names())
	}
	return spec, nil
}

func (s Specs) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads the record specs from path, or the built-in specs when path is empty.
func Load(path string) (Specs, error) {
	if path == "" {
		return Parse(defaultSpecs)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record specs %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in specs. It panics if they do not parse.
func Default() Specs {
	specs, err := Parse(defaultSpecs)
	if err != nil {
		panic(err)
	}
	return specs
}

func Parse(data []byte) (Specs, error) {
	var specs Specs
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to decode record specs: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no record specs defined")
	}
	for name, spec := range specs {
		if spec == nil {
			return nil, fmt.Errorf("spec %q is empty", name)
		}
		spec.Name = name
		if err := spec.validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}
