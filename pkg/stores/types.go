package stores

import (
	"context"
	"time"

	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/ontology"
)

// AuditEntry is one row of the append-only execution audit trail.
type AuditEntry struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"` // e.g. "class.defined", "instance.created", "workflow.executed"
	Handler     string    `json:"handler,omitempty"`
	ExecutionID string    `json:"execution_id,omitempty"`
	InstanceID  string    `json:"instance_id,omitempty"`
	Class       string    `json:"class,omitempty"`
	Details     *string   `json:"details,omitempty"` // JSON blob
	Timestamp   time.Time `json:"timestamp"`
}

// Audit action constants.
const (
	AuditClassDefined      = "class.defined"
	AuditInstanceCreated   = "instance.created"
	AuditInstanceUpdated   = "instance.updated"
	AuditInstanceDeleted   = "instance.deleted"
	AuditHandlerRegistered = "handler.registered"
	AuditWorkflowExecuted  = "workflow.executed"
)

// Store defines the interface for the persistence layer. An implementation
// persists the live registries' state so that classes, instances, and handler
// definitions survive a restart.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Class operations
	SaveClass(ctx context.Context, def *ontology.ClassDefinition) error
	GetClass(ctx context.Context, name string) (*ontology.ClassDefinition, error)
	ListClasses(ctx context.Context) ([]*ontology.ClassDefinition, error)

	// Instance operations
	SaveInstance(ctx context.Context, inst *ontology.Instance) error
	GetInstance(ctx context.Context, id string) (*ontology.Instance, error)
	ListInstances(ctx context.Context, className string) ([]*ontology.Instance, error)
	DeleteInstance(ctx context.Context, id string) error

	// Handler operations
	SaveHandler(ctx context.Context, def *handlers.Definition) error
	GetHandler(ctx context.Context, name string) (*handlers.Definition, error)
	ListHandlers(ctx context.Context) ([]*handlers.Definition, error)

	// Audit operations
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, action string, limit, offset int) ([]*AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
