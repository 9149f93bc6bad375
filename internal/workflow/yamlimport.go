package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlDoc mirrors the authoring-time YAML shape a tenant (or the seed
// fixtures) writes a workflow in, kept separate from Workflow itself so
// the storage/runtime type isn't coupled to the on-disk format. Grounded
// on the teacher's integration_tests/framework/runner.go, which parses
// its own YAML-authored scenario fixtures the same way.
type yamlDoc struct {
	Name        string         `yaml:"name"`
	TriggerKind string         `yaml:"trigger_kind"`
	Trigger     map[string]any `yaml:"trigger_config"`
	Nodes       []yamlNode     `yaml:"nodes"`
	Edges       []yamlEdge     `yaml:"edges"`
}

type yamlNode struct {
	ID     string         `yaml:"id"`
	Kind   string         `yaml:"kind"`
	Label  string         `yaml:"label"`
	Config map[string]any `yaml:"config"`
}

type yamlEdge struct {
	Source string  `yaml:"source"`
	Target string  `yaml:"target"`
	Guard  *string `yaml:"guard"`
}

// ParseYAML decodes a YAML-authored workflow definition into a Workflow
// scoped to tenantID. It performs no validation beyond structural
// decoding; callers should run Validate before persisting.
func ParseYAML(tenantID string, data []byte) (*Workflow, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("workflow: parse yaml: %w", err)
	}

	w := &Workflow{
		TenantID:      tenantID,
		Name:          doc.Name,
		Active:        true,
		TriggerKind:   TriggerKind(doc.TriggerKind),
		TriggerConfig: doc.Trigger,
	}
	for _, n := range doc.Nodes {
		w.Nodes = append(w.Nodes, Node{
			ID:     n.ID,
			Kind:   NodeKind(n.Kind),
			Label:  n.Label,
			Config: n.Config,
		})
	}
	for _, e := range doc.Edges {
		w.Edges = append(w.Edges, Edge{Source: e.Source, Target: e.Target, Guard: e.Guard})
	}
	return w, nil
}
