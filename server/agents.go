// ABOUTME: Agent registry loading agent definitions from embedded YAML files.
// ABOUTME: Each definition carries the system prompt, model, and completion phrases for hand-off detection.
package server

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed agents/*.yaml
var agentFS embed.FS

// AgentDef is one agent definition.
type AgentDef struct {
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	Model             string   `yaml:"model"`
	SystemPrompt      string   `yaml:"system_prompt"`
	CompletionPhrases []string `yaml:"completion_phrases"`
}

// Registry holds all loaded agents by name.
type Registry struct {
	agents map[string]AgentDef
	log    *log.Logger
}

// NewRegistry loads the embedded agent definitions.
func NewRegistry(logger *log.Logger) (*Registry, error) {
	return LoadRegistry(agentFS, logger)
}

// LoadRegistry loads every agents/*.yaml definition from the given
// filesystem. A definition missing a name, prompt, or model is rejected.
func LoadRegistry(fsys fs.FS, logger *log.Logger) (*Registry, error) {
	if logger == nil {
		logger = log.Default()
	}

	entries, err := fs.Glob(fsys, "agents/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("listing agent definitions: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no agent definitions found")
	}

	r := &Registry{agents: make(map[string]AgentDef, len(entries)), log: logger}
	for _, path := range entries {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var def AgentDef
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if def.Name == "" || def.SystemPrompt == "" || def.Model == "" {
			return nil, fmt.Errorf("agent definition %s missing required fields", path)
		}

		r.agents[def.Name] = def
		logger.Printf("registered agent name=%s model=%s", def.Name, def.Model)
	}

	return r, nil
}

// Get returns the agent with the given name.
func (r *Registry) Get(name string) (AgentDef, bool) {
	def, ok := r.agents[name]
	return def, ok
}

// List returns all agents sorted by name.
func (r *Registry) List() []AgentDef {
	out := make([]AgentDef, 0, len(r.agents))
	for _, def := range r.agents {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StartingAgent returns the agent that opens the workflow.
func (r *Registry) StartingAgent() string {
	return "inspector"
}

// IsComplete reports whether the agent's response signals that its stage of
// the workflow has finished, using case-insensitive phrase matching.
func (def AgentDef) IsComplete(response string) bool {
	lower := strings.ToLower(response)
	for _, phrase := range def.CompletionPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
