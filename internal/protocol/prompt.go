// Package protocol defines the output contract between pipeline stages and
// language models: named, versioned prompts bound to structural output
// schemas, with strict validation of every model response.
package protocol

import "strings"

const schemaPlaceholder = "{{output_schema}}"

// Prompt binds a template to its required input variables and the output
// schema its responses must satisfy. Instances are built by the Provider and
// shared; they never mutate after construction.
type Prompt struct {
	Name           string
	Version        int
	Description    string
	Template       string
	InputVariables []string

	newRecord func() Output
}

// Format substitutes the supplied inputs into the template. If any required
// variable is absent the call fails with a MissingVariableError listing every
// missing name, and no partially substituted text is returned.
func (p *Prompt) Format(inputs map[string]string) (string, error) {
	var missing []string
	for _, name := range p.InputVariables {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVariableError{Prompt: p.Name, Variables: missing}
	}

	replacements := make([]string, 0, len(p.InputVariables)*2)
	for _, name := range p.InputVariables {
		replacements = append(replacements, "{{"+name+"}}", inputs[name])
	}
	return strings.NewReplacer(replacements...).Replace(p.Template), nil
}

// ParseOutput validates raw model output against the bound schema. Code
// fences are stripped before parsing. Syntactic failures surface as
// MalformedOutputError, semantic ones as SchemaViolationError; the returned
// record is fully validated or nil.
func (p *Prompt) ParseOutput(raw string) (Output, error) {
	record := p.newRecord()
	if err := decodeModelJSON(raw, record); err != nil {
		return nil, &MalformedOutputError{Prompt: p.Name, Snippet: summarizePayloadSnippet(raw), Err: err}
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}
