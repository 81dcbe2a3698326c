// Package resource loads the declarative resource registry. A resource
// bundles visibility conditions, stat specs and actions under a stable
// id; handlers resolve against it and never accept rule definitions
// from request bodies.
package resource

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hexacore/hexacore/internal/condition"
	"github.com/hexacore/hexacore/internal/stats"
	"github.com/hexacore/hexacore/modules/entity/domain/ports"
)

type Registry struct {
	Version   int                 `yaml:"version"`
	Resources map[string]Resource `yaml:"resources"`
}

type Resource struct {
	ID         string                `yaml:"-"`
	Title      string                `yaml:"title"`
	EntityType string                `yaml:"entityType"`
	Visibility []condition.Condition `yaml:"visibilityConditions"`
	Stats      []stats.Spec          `yaml:"stats"`
	Actions    []Action              `yaml:"actions"`
}

// Action kinds are closed; the executor dispatches on Kind and nothing
// in a registry file can reach outside this set.
const (
	ActionSetField     = "set_field"
	ActionDeleteEntity = "delete_entity"
)

type Action struct {
	ID                   string                `yaml:"id"`
	Kind                 string                `yaml:"kind"`
	Label                string                `yaml:"label"`
	RequiresConfirmation bool                  `yaml:"requiresConfirmation"`
	Visibility           []condition.Condition `yaml:"visibilityConditions"`
	Params               map[string]string     `yaml:"params"`
}

// ParseRegistryYAML decodes and validates a registry document. Every
// condition path, stat spec and action is checked here so a bad file
// fails at startup, not per request.
func ParseRegistryYAML(b []byte) (Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Registry{}, err
	}
	if r.Version != 1 {
		return Registry{}, errors.New("resource registry: unsupported version")
	}
	if len(r.Resources) == 0 {
		return Registry{}, errors.New("resource registry: no resources")
	}
	for id, res := range r.Resources {
		res.ID = id
		if err := validateResource(res); err != nil {
			return Registry{}, fmt.Errorf("resource %q: %w", id, err)
		}
		r.Resources[id] = res
	}
	return r, nil
}

func LoadRegistry(path string) (Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, err
	}
	return ParseRegistryYAML(b)
}

func (r Registry) Resource(id string) (Resource, bool) {
	res, ok := r.Resources[id]
	return res, ok
}

func (res Resource) Action(id string) (Action, bool) {
	for _, a := range res.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

func validateResource(res Resource) error {
	if err := validateConditions(res.Visibility); err != nil {
		return err
	}
	seenStats := map[string]bool{}
	for _, s := range res.Stats {
		if s.ID == "" {
			return errors.New("stat without id")
		}
		if seenStats[s.ID] {
			return fmt.Errorf("duplicate stat %q", s.ID)
		}
		seenStats[s.ID] = true
		if err := validateStatSpec(s); err != nil {
			return fmt.Errorf("stat %q: %w", s.ID, err)
		}
	}
	seenActions := map[string]bool{}
	for _, a := range res.Actions {
		if a.ID == "" {
			return errors.New("action without id")
		}
		if seenActions[a.ID] {
			return fmt.Errorf("duplicate action %q", a.ID)
		}
		seenActions[a.ID] = true
		if err := validateAction(a); err != nil {
			return fmt.Errorf("action %q: %w", a.ID, err)
		}
	}
	return nil
}

func validateStatSpec(s stats.Spec) error {
	switch s.Relation {
	case ports.RelationEntities, ports.RelationRelationships, ports.RelationTransactions:
	default:
		return fmt.Errorf("unknown relation %q", string(s.Relation))
	}
	switch s.Op {
	case ports.AggCount:
	case ports.AggSum, ports.AggAvg:
		if s.Field == "" {
			return fmt.Errorf("%s requires a field", string(s.Op))
		}
	default:
		return fmt.Errorf("unknown aggregate %q", string(s.Op))
	}
	switch s.Format {
	case "", stats.FormatNumber, stats.FormatCurrency, stats.FormatPercentage:
	default:
		return fmt.Errorf("unknown format %q", s.Format)
	}
	return validateConditions(s.Conditions)
}

func validateAction(a Action) error {
	switch a.Kind {
	case ActionSetField:
		if a.Params["field"] == "" {
			return errors.New("set_field requires params.field")
		}
		if a.Params["smartCode"] == "" {
			return errors.New("set_field requires params.smartCode")
		}
	case ActionDeleteEntity:
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	return validateConditions(a.Visibility)
}

func validateConditions(conds []condition.Condition) error {
	for _, c := range conds {
		if err := condition.ValidatePath(c.Field); err != nil {
			return fmt.Errorf("condition: %w", err)
		}
		switch c.Operator {
		case condition.OpEquals, condition.OpNotEquals, condition.OpContains,
			condition.OpGT, condition.OpLT, condition.OpGTE, condition.OpLTE, condition.OpIn:
		default:
			return fmt.Errorf("unknown operator %q", string(c.Operator))
		}
	}
	return nil
}
