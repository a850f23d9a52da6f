package stores

import (
	"context"
	"fmt"

	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/ontology"
)

// Restore rebuilds the in-memory registries from the persistence layer.
// Classes are installed with their original timestamps, every instance is
// revalidated against the restored schema, and handler definitions pass
// through normal registration so a corrupted record cannot load. Restore
// either returns fully populated registries or an error with nothing shared.
func Restore(ctx context.Context, store Store) (*ontology.Registry, *ontology.Store, *handlers.Registry, error) {
	schema := ontology.NewRegistry()

	classes, err := store.ListClasses(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load classes: %w", err)
	}
	for _, def := range classes {
		if err := schema.RestoreClass(def); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to restore class %s: %w", def.Name, err)
		}
	}

	instanceStore := ontology.NewStore(schema)

	instances, err := store.ListInstances(ctx, "")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load instances: %w", err)
	}
	if err := instanceStore.Restore(instances); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to restore instances: %w", err)
	}

	handlerRegistry := handlers.NewRegistry()

	defs, err := store.ListHandlers(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load handlers: %w", err)
	}
	for _, def := range defs {
		if err := handlerRegistry.Register(def); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to restore handler %s: %w", def.Name, err)
		}
	}

	return schema, instanceStore, handlerRegistry, nil
}
