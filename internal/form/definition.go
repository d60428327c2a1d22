// internal/form/definition.go
//
// Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form is declared in a YAML file under `web/forms/`.  The file
//   defines the form's identifier, title, fields, whether the form accepts
//   CAPTCHA protection, and any post-submit actions.  At start-up every
//   “*.yaml” is parsed into a FormDef and stored in a Registry that the
//   Builder reads from.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → FieldDef / ActionDef.
//   •  ParseFormDef parses one document and validates structural rules.
//   •  Registry.Load walks an fs.FS (the embedded `web` tree in production,
//      fstest.MapFS in tests) and registers every definition.
//   •  Registry.Get offers read-only access to a parsed form by ID.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// ID is namespaced by component, e.g. “accounts/login”.  Captcha marks the
// form as eligible for the human-verification field; whether the field is
// actually present is decided per build.
type FormDef struct {
	ID      string      `yaml:"id"`
	Title   string      `yaml:"title"`
	Submit  string      `yaml:"submit"`
	Captcha bool        `yaml:"captcha"`
	Fields  []FieldDef  `yaml:"fields"`
	Actions []ActionDef `yaml:"actions"`
}

// FieldDef describes a single input control.  Validation metadata lives
// inline so the server enforces the same rules the client hints at.
type FieldDef struct {
	Name        string   `yaml:"name"`
	Label       string   `yaml:"label"`
	Type        string   `yaml:"type"` // text, textarea, email, password, number, date, select, radio, checkbox
	Placeholder string   `yaml:"placeholder"`
	Help        string   `yaml:"help"`
	Required    bool     `yaml:"required"`
	MinLength   int      `yaml:"minlength"`
	MaxLength   int      `yaml:"maxlength"`
	Pattern     string   `yaml:"pattern"`
	Options     []Option `yaml:"options"`
	ErrorMsg    string   `yaml:"error"`
}

// Option is one choice of a select or radio field.  A bare YAML string
// sets both Value and Label.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// UnmarshalYAML accepts either a scalar or a {value, label} mapping.
func (o *Option) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		o.Value, o.Label = n.Value, n.Value
		return nil
	}
	type plain Option
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*o = Option(p)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// ActionDef configures an automated action executed after validation.
// Unknown keys are tolerated here; the executor validates them.
type ActionDef struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:",inline"`
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry maps form ID → *FormDef.  Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*FormDef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*FormDef)}
}

// Get returns a parsed FormDef by ID.
func (r *Registry) Get(id string) (*FormDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fd, ok := r.defs[id]
	return fd, ok
}

// Add registers fd, replacing any definition with the same ID.
func (r *Registry) Add(fd *FormDef) {
	r.mu.Lock()
	r.defs[fd.ID] = fd
	r.mu.Unlock()
}

// Load parses every “*.yaml” below dir in fsys.
func (r *Registry) Load(fsys fs.FS, dir string) error {
	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path.Ext(p) != ".yaml" {
			return nil
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", p, err)
		}
		fd, err := ParseFormDef(raw, p)
		if err != nil {
			return err
		}
		r.Add(fd)
		zap.S().Debugw("form registered", "id", fd.ID, "file", p)
		return nil
	})
}

// ParseFormDef parses one YAML document and validates its structure.
func ParseFormDef(raw []byte, name string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}
	if err := validateFormDef(&fd, name); err != nil {
		return nil, err
	}
	return &fd, nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

var validActions = map[string]bool{
	"email": true,
	"store": true,
}

var validTypes = map[string]bool{
	"text": true, "textarea": true, "email": true, "password": true,
	"number": true, "date": true, "select": true, "radio": true, "checkbox": true,
}

// validateFormDef enforces structural rules that YAML tags cannot express.
func validateFormDef(fd *FormDef, name string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", name)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", name)
	}

	seen := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if err := validateField(f, name); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	for _, ac := range fd.Actions {
		if !validActions[ac.Type] {
			return fmt.Errorf("form %s: unrecognized action type '%s'", name, ac.Type)
		}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, name string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", name)
	}
	if strings.EqualFold(f.Name, captchaField.Name) {
		return fmt.Errorf("form %s: field name '%s' is reserved", name, f.Name)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", name, f.Name)
	}
	if !validTypes[f.Type] {
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", name, f.Name, f.Type)
	}
	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", name, f.Name, err)
		}
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", name, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", name, f.Name)
	}
	if (f.Type == "select" || f.Type == "radio") && len(f.Options) == 0 {
		return fmt.Errorf("form %s: field '%s' needs options", name, f.Name)
	}
	return nil
}
