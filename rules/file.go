package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a rule table. Exactly one of Rule,
// Birth/Survive or Outputs describes the transition function.
//
// Outputs holds one 0/1 digit per word in AllCombinations order. Words read
// the 3x3 neighbourhood row-major with the top-left cell as the most
// significant bit, so the centre cell is bit 4 and digit 128 belongs to the
// word whose only live cell is (0,1). Tables enumerated column-major must be
// transposed before they are written here.
type File struct {
	Name         string `yaml:"name"`
	Neighborhood string `yaml:"neighborhood,omitempty"`
	Rule         string `yaml:"rule,omitempty"`
	Birth        []int  `yaml:"birth,omitempty"`
	Survive      []int  `yaml:"survive,omitempty"`
	Outputs      string `yaml:"outputs,omitempty"`
}

// Parse decodes a YAML rule file.
func Parse(data []byte) (*Table, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	return f.Table()
}

// Load reads and decodes a YAML rule file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Table builds the table the file describes.
func (f *File) Table() (*Table, error) {
	nb, err := ParseNeighborhood(f.Neighborhood)
	if err != nil {
		return nil, err
	}

	forms := 0
	if f.Rule != "" {
		forms++
	}
	if f.Birth != nil || f.Survive != nil {
		forms++
	}
	if f.Outputs != "" {
		forms++
	}
	if forms != 1 {
		return nil, fmt.Errorf("%w: rule file needs exactly one of rule, birth/survive or outputs", ErrTable)
	}

	var t *Table
	switch {
	case f.Rule != "":
		t, err = ParseRuleString(f.Rule)
	case f.Outputs != "":
		var outputs []float32
		outputs, err = ParseBits(f.Outputs)
		if err == nil {
			t, err = FromOutputs(nb, outputs)
		}
	default:
		t, err = LifeLike(f.Name, f.Birth, f.Survive)
	}
	if err != nil {
		return nil, err
	}
	if f.Name != "" {
		t.Name = f.Name
	}
	return t, nil
}

// Save writes t in the dense outputs form.
func Save(path string, t *Table) error {
	data, err := Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal encodes t in the dense outputs form.
func Marshal(t *Table) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	f := File{
		Name:         t.Name,
		Neighborhood: string(t.Neighborhood),
		Outputs:      FormatBits(t.Outputs()),
	}
	return yaml.Marshal(&f)
}

// FormatBits renders a 0/1 vector as a digit string.
func FormatBits(bits []float32) string {
	var b strings.Builder
	b.Grow(len(bits))
	for _, v := range bits {
		if v != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseBits reads a digit string of 0s and 1s. Whitespace and underscores
// are ignored.
func ParseBits(s string) ([]float32, error) {
	out := make([]float32, 0, len(s))
	for _, r := range s {
		switch r {
		case '0':
			out = append(out, 0)
		case '1':
			out = append(out, 1)
		case ' ', '\n', '\t', '\r', '_':
		default:
			return nil, fmt.Errorf("%w: %q in bit string", ErrNotBinary, r)
		}
	}
	return out, nil
}
