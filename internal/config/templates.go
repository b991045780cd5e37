package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aristath/lotsched/internal/scheduler"
)

// ParseTemplate decodes one YAML lot template. Unknown keys are rejected so
// that a misspelled field does not silently drop a dependency.
func ParseTemplate(data []byte) (scheduler.Template, error) {
	var tmpl scheduler.Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		if errors.Is(err, io.EOF) {
			return tmpl, fmt.Errorf("template is empty")
		}
		return tmpl, err
	}
	if len(tmpl.Tasks) == 0 {
		return tmpl, fmt.Errorf("template %q has no tasks", tmpl.Name)
	}
	return tmpl, nil
}

// LoadTemplate reads a template file. The file name (without extension)
// becomes the template name when the document does not set one.
func LoadTemplate(path string) (scheduler.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scheduler.Template{}, fmt.Errorf("reading template %s: %w", path, err)
	}

	tmpl, err := ParseTemplate(data)
	if err != nil {
		return scheduler.Template{}, fmt.Errorf("parsing template %s: %w", path, err)
	}
	if tmpl.Name == "" {
		tmpl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return tmpl, nil
}

// LoadTemplates reads every *.yaml and *.yml file in dir, keyed by template
// name, on top of the built-in standard template. A missing dir yields only
// the built-in template.
func LoadTemplates(dir string) (map[string]scheduler.Template, error) {
	templates := map[string]scheduler.Template{
		DefaultTemplateName: StandardTemplate(),
	}
	if dir == "" {
		return templates, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return templates, nil
		}
		return nil, fmt.Errorf("reading template dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		tmpl, err := LoadTemplate(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		templates[tmpl.Name] = tmpl
	}
	return templates, nil
}

// SaveTemplate writes tmpl as YAML into dir, named after the template.
func SaveTemplate(dir string, tmpl scheduler.Template) (string, error) {
	if tmpl.Name == "" {
		return "", fmt.Errorf("template name is required")
	}

	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return "", fmt.Errorf("marshaling template: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, tmpl.Name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing template to %s: %w", path, err)
	}
	return path, nil
}
