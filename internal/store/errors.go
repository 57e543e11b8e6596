package store

import (
	"fmt"

	"cliplift/internal/services"
)

// IntegrityError reports a write that referenced a row that does not exist,
// such as scoring a segment that was never created.
type IntegrityError struct {
	Entity    string
	ID        int64
	Operation string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("store integrity: %s %d does not exist (%s)", e.Entity, e.ID, e.Operation)
}

// Unwrap ties integrity failures into the shared sentinel taxonomy.
func (e *IntegrityError) Unwrap() error {
	return services.ErrStoreIntegrity
}
