package models

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Input types used by the field table.
const (
	TypeText     = "text"
	TypeDate     = "date"
	TypeEmail    = "email"
	TypeTel      = "tel"
	TypeRadio    = "radio"
	TypeCheckbox = "checkbox"
	TypeFile     = "file"
)

//go:embed fields.yaml
var fieldsYAML []byte

// Option is one choice of a radio or checkbox group.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Display returns the label shown next to the option.
func (o Option) Display() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// FieldDefinition describes how a field is presented and whether it carries
// a required marker.
type FieldDefinition struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label" json:"label"`
	Type        string   `yaml:"type" json:"type"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Options     []Option `yaml:"options,omitempty" json:"options,omitempty"`
}

// Form is the field table of the application form, in display order.
type Form struct {
	Title    string            `yaml:"title" json:"title"`
	Subtitle string            `yaml:"subtitle" json:"subtitle"`
	Intro    string            `yaml:"intro" json:"intro"`
	Fields   []FieldDefinition `yaml:"fields" json:"fields"`
}

// Field returns the definition named name.
func (f *Form) Field(name string) (FieldDefinition, bool) {
	for _, fd := range f.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return FieldDefinition{}, false
}

// ParseForm decodes a YAML field table.
func ParseForm(data []byte) (*Form, error) {
	var f Form
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse field table: %w", err)
	}
	for i, fd := range f.Fields {
		if fd.Name == "" {
			return nil, fmt.Errorf("parse field table: field %d has no name", i)
		}
		if fd.Type == "" {
			f.Fields[i].Type = TypeText
		}
	}
	return &f, nil
}

var (
	tableOnce sync.Once
	table     *Form
)

// FieldTable returns the embedded application field table.
func FieldTable() *Form {
	tableOnce.Do(func() {
		f, err := ParseForm(fieldsYAML)
		if err != nil {
			panic(err)
		}
		table = f
	})
	return table
}
