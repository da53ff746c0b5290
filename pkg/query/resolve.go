package query

import (
	"fmt"

	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// resolvePropertyTypes determines the type of every name across classes. A
// class that does not declare a name is skipped for it. Two classes that
// disagree on a type fail with schema.ErrConflictPropertyType, and a name
// declared by no class fails with schema.ErrNoSuchProperty.
func resolvePropertyTypes(classes []schema.ClassInfo, names []string) (predicate.PropertyTypes, error) {
	types := make(predicate.PropertyTypes, len(names))
	for _, name := range names {
		found := false
		for _, c := range classes {
			desc, ok := c.Properties.Lookup(name)
			if !ok {
				continue
			}
			if prev, seen := types[name]; seen && prev != desc.Type {
				return nil, fmt.Errorf("%w: %q is %s elsewhere but %s in class %q",
					schema.ErrConflictPropertyType, name, prev, desc.Type, c.Name())
			}
			types[name] = desc.Type
			found = true
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", schema.ErrNoSuchProperty, name)
		}
	}
	return types, nil
}

func propertyNames(pred predicate.Predicate) []string {
	if pred == nil {
		return nil
	}
	return pred.PropertyNames()
}

func classIDs(classes []schema.ClassInfo) []schema.ClassID {
	ids := make([]schema.ClassID, len(classes))
	for i, c := range classes {
		ids[i] = c.ID()
	}
	return ids
}
