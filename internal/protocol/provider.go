package protocol

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"cliplift/internal/services"
)

//go:embed prompts
var promptFiles embed.FS

// promptFile mirrors the on-disk YAML layout: one file per (name, version).
type promptFile struct {
	Name           string   `yaml:"name"`
	Version        int      `yaml:"version"`
	Description    string   `yaml:"description"`
	Template       string   `yaml:"template"`
	InputVariables []string `yaml:"input_variables"`
}

// Provider loads prompt definitions from the embedded registry. Each
// (name, version) pair is parsed once; repeated lookups return the identical
// instance.
type Provider struct {
	mu    sync.Mutex
	cache map[string]*Prompt
}

// NewProvider returns an empty-cache provider over the embedded registry.
func NewProvider() *Provider {
	return &Provider{cache: make(map[string]*Prompt)}
}

// Get returns the prompt for the given name and version, loading and caching
// it on first use. The template's output-schema placeholder is replaced with
// the bound schema's structural description at load time.
func (p *Provider) Get(name string, version int) (*Prompt, error) {
	key := fmt.Sprintf("%s/v%d", name, version)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[key]; ok {
		return cached, nil
	}

	spec, ok := schemaSpecs[name]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "protocol", "load prompt",
			fmt.Sprintf("no output schema registered for %q", name), nil)
	}

	data, err := promptFiles.ReadFile("prompts/" + key + ".yaml")
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "protocol", "load prompt",
			fmt.Sprintf("prompt %s not found in registry", key), err)
	}

	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "protocol", "load prompt",
			fmt.Sprintf("parse prompt %s", key), err)
	}
	if file.Name != name || file.Version != version {
		return nil, services.Wrap(services.ErrConfiguration, "protocol", "load prompt",
			fmt.Sprintf("prompt %s declares name %q version %d", key, file.Name, file.Version), nil)
	}
	if strings.TrimSpace(file.Template) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "protocol", "load prompt",
			fmt.Sprintf("prompt %s has an empty template", key), nil)
	}

	prompt := &Prompt{
		Name:           file.Name,
		Version:        file.Version,
		Description:    file.Description,
		Template:       strings.ReplaceAll(file.Template, schemaPlaceholder, spec.description),
		InputVariables: append([]string(nil), file.InputVariables...),
		newRecord:      spec.newRecord,
	}
	p.cache[key] = prompt
	return prompt, nil
}
