package mapping

import (
	"fmt"
	"strings"
)

// Validate checks the structural integrity of the mapping document before any
// statement is built or executed. Every load_order entry must resolve to a
// declared spec; an entry that resolves nowhere aborts the run rather than
// being skipped, so a typo cannot silently drop an entity from the graph.
func (s *Spec) Validate() error {
	if len(s.Sources) == 0 {
		return fmt.Errorf("mapping declares no sources")
	}
	if len(s.LoadOrder) == 0 {
		return fmt.Errorf("mapping declares no load_order")
	}

	seen := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d] has no name", i)
		}
		if src.Path == "" {
			return fmt.Errorf("source %q has no path", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("source %q declared twice", src.Name)
		}
		seen[src.Name] = true
	}

	for name, node := range s.Nodes {
		if err := s.validateNode(name, node); err != nil {
			return err
		}
	}
	for name, rel := range s.Relationships {
		if err := s.validateRel(name, rel); err != nil {
			return err
		}
	}

	for _, item := range s.LoadOrder {
		if err := s.resolveLoadOrderItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spec) validateNode(name string, node NodeSpec) error {
	if node.Label == "" {
		return fmt.Errorf("node %q has no label", name)
	}
	if _, err := s.Source(node.Source); err != nil {
		return fmt.Errorf("node %q: %w", name, err)
	}
	if len(node.Key) == 0 {
		return fmt.Errorf("node %q has no key fields", name)
	}
	for _, k := range node.Key {
		if _, ok := node.Mappings[k]; !ok {
			return fmt.Errorf("node %q: key field %q has no mapping", name, k)
		}
	}
	for prop, field := range node.Mappings {
		if err := validateField(field); err != nil {
			return fmt.Errorf("node %q property %q: %w", name, prop, err)
		}
	}
	return nil
}

func (s *Spec) validateRel(name string, rel RelSpec) error {
	if rel.Type == "" {
		return fmt.Errorf("relationship %q has no type", name)
	}
	if _, err := s.Source(rel.Source); err != nil {
		return fmt.Errorf("relationship %q: %w", name, err)
	}
	switch rel.Direction {
	case "", DirectionOut, DirectionIn:
	default:
		return fmt.Errorf("relationship %q has invalid direction %q", name, rel.Direction)
	}
	for _, ep := range []struct {
		role string
		ep   Endpoint
	}{{"from", rel.From}, {"to", rel.To}} {
		if ep.ep.Label == "" {
			return fmt.Errorf("relationship %q endpoint %s has no label", name, ep.role)
		}
		if len(ep.ep.MatchOn) == 0 {
			return fmt.Errorf("relationship %q endpoint %s has no match_on columns", name, ep.role)
		}
	}
	for prop, field := range rel.Properties {
		if err := validateField(field); err != nil {
			return fmt.Errorf("relationship %q property %q: %w", name, prop, err)
		}
	}
	return nil
}

func validateField(f FieldSpec) error {
	if f.Column == "" {
		return fmt.Errorf("no source column")
	}
	switch f.Type {
	case "", TypeString, TypeInt, TypeFloat:
	default:
		return fmt.Errorf("unsupported type %q", f.Type)
	}
	for _, t := range f.Transform {
		switch t {
		case "trim", "lower":
		default:
			return fmt.Errorf("unsupported transform %q", t)
		}
	}
	return nil
}

func (s *Spec) resolveLoadOrderItem(item string) error {
	switch {
	case strings.HasPrefix(item, PrefixNodes):
		key := strings.TrimPrefix(item, PrefixNodes)
		if _, ok := s.Nodes[key]; !ok {
			return fmt.Errorf("load_order entry %q does not resolve to a declared node spec", item)
		}
	case strings.HasPrefix(item, PrefixRels):
		key := strings.TrimPrefix(item, PrefixRels)
		if _, ok := s.Relationships[key]; !ok {
			return fmt.Errorf("load_order entry %q does not resolve to a declared relationship spec", item)
		}
	case strings.HasPrefix(item, PrefixDerived):
		if s.Derived.PromoteNamedEdges == nil {
			return fmt.Errorf("load_order entry %q but no derived_relationships are declared", item)
		}
	default:
		return fmt.Errorf("unrecognized load_order entry %q", item)
	}
	return nil
}
