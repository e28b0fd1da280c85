package masking

import (
	"encoding/json"
	"fmt"
	"os"
)

// RedactedMarker replaces a protected value for roles outside the column's
// permitted set. The stored value is never mutated; substitution happens at
// read time only.
const RedactedMarker = "**REDACTED**"

// Protected column identifiers
const (
	ColumnFirstName   = "first_name"
	ColumnLastName    = "last_name"
	ColumnEmail       = "email"
	ColumnPhoneNumber = "phone_number"
	ColumnDailySales  = "daily_sales"
)

// RoleConfig is one role and the protected columns it may see unmasked
type RoleConfig struct {
	Name             string   `json:"name"`
	PermittedColumns []string `json:"permitted_columns"`
}

type rolesFile struct {
	ProtectedColumns []string     `json:"protected_columns"`
	Roles            []RoleConfig `json:"roles"`
}

// Engine evaluates column masking policies. It is immutable after
// construction and safe for concurrent readers.
type Engine struct {
	protected map[string]bool
	grants    map[string]map[string]bool
}

// NewEngine builds a masking engine from the protected column list and role
// grants. A role absent from the grants sees no protected column.
func NewEngine(protectedColumns []string, roles []RoleConfig) *Engine {
	e := &Engine{
		protected: make(map[string]bool, len(protectedColumns)),
		grants:    make(map[string]map[string]bool, len(roles)),
	}
	for _, col := range protectedColumns {
		e.protected[col] = true
	}
	for _, role := range roles {
		permitted := make(map[string]bool, len(role.PermittedColumns))
		for _, col := range role.PermittedColumns {
			permitted[col] = true
		}
		e.grants[role.Name] = permitted
	}
	return e
}

// LoadEngine reads the role grants JSON file and builds the engine
func LoadEngine(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roles file: %w", err)
	}

	var parsed rolesFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse roles file: %w", err)
	}
	if len(parsed.ProtectedColumns) == 0 {
		return nil, fmt.Errorf("roles file defines no protected columns")
	}

	return NewEngine(parsed.ProtectedColumns, parsed.Roles), nil
}

// Visible reports whether a role may see a column unmasked. Unprotected
// columns are visible to every role; unknown roles fail closed.
func (e *Engine) Visible(column, role string) bool {
	if !e.protected[column] {
		return true
	}
	permitted, ok := e.grants[role]
	if !ok {
		return false
	}
	return permitted[column]
}

// Apply evaluates one column policy for one access: the value passes through
// when the role is permitted, otherwise the redaction marker is substituted.
// The decision never depends on the value, including nil.
func (e *Engine) Apply(column string, value interface{}, role string) interface{} {
	if e.Visible(column, role) {
		return value
	}
	return RedactedMarker
}

// MaskRecord applies every column's policy independently to a keyed record.
// One column's decision never short-circuits another's.
func (e *Engine) MaskRecord(record map[string]interface{}, role string) map[string]interface{} {
	masked := make(map[string]interface{}, len(record))
	for column, value := range record {
		masked[column] = e.Apply(column, value, role)
	}
	return masked
}

// Roles returns the configured role names
func (e *Engine) Roles() []string {
	names := make([]string, 0, len(e.grants))
	for name := range e.grants {
		names = append(names, name)
	}
	return names
}
