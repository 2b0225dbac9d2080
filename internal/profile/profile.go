// Package profile loads the candidate profile the oracle answers from.
package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Documents holds paths of files the forms may ask for.
type Documents struct {
	ResumePath string `json:"resume_path" yaml:"resume_path"`
}

// Profile is the candidate data. Sections are kept loosely typed; the oracle
// reads them as JSON.
type Profile struct {
	PersonalInformation map[string]any `json:"personal_information" yaml:"personal_information"`
	WorkExperience      []any          `json:"work_experience" yaml:"work_experience"`
	Education           []any          `json:"education" yaml:"education"`
	FluentLanguages     []any          `json:"fluent_languages" yaml:"fluent_languages"`
	TechnicalSkills     any            `json:"technical_skills" yaml:"technical_skills"`
	Documents           Documents      `json:"documents" yaml:"documents"`

	raw map[string]any
}

// Load reads a profile from a JSON or YAML file, chosen by extension.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON profile.
func ParseJSON(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, eris.Wrap(err, "profile: decode json")
	}
	if err := json.Unmarshal(data, &p.raw); err != nil {
		return nil, eris.Wrap(err, "profile: decode json")
	}
	return p, nil
}

// ParseYAML decodes a YAML profile.
func ParseYAML(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrap(err, "profile: decode yaml")
	}
	if err := yaml.Unmarshal(data, &p.raw); err != nil {
		return nil, eris.Wrap(err, "profile: decode yaml")
	}
	return p, nil
}

// All returns the whole profile as decoded, including keys without a
// dedicated field.
func (p *Profile) All() map[string]any {
	if p.raw == nil {
		return map[string]any{}
	}
	return p.raw
}

// Skills returns the slice used for skills sections.
func (p *Profile) Skills() map[string]any {
	return map[string]any{"technical_skills": p.TechnicalSkills}
}

// Resume returns the slice used for resume and document sections.
func (p *Profile) Resume() map[string]any {
	return map[string]any{"resume_path": p.Documents.ResumePath}
}
