// Package schema declares the queryable table and the semantic role of each
// of its columns. A Descriptor is built once at startup and never mutated.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Role string

const (
	RoleDate       Role = "date"
	RoleMeasure    Role = "measure"
	RoleDimension  Role = "dimension"
	RoleIdentifier Role = "identifier"
)

func (r Role) valid() bool {
	switch r {
	case RoleDate, RoleMeasure, RoleDimension, RoleIdentifier:
		return true
	default:
		return false
	}
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Column describes one column of the table.
type Column struct {
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	Type        string   `json:"type"`
	Aliases     []string `json:"aliases,omitempty"`
	Values      []string `json:"values,omitempty"`
	Default     bool     `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Descriptor is an immutable view over a single table definition.
type Descriptor struct {
	table   string
	columns []Column
	byName  map[string]int
}

func New(table string, columns []Column) (*Descriptor, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns", table)
	}

	d := &Descriptor{
		table:   table,
		columns: make([]Column, 0, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}
	defaults := map[Role]string{}
	var errs []error
	for _, column := range columns {
		if !identPattern.MatchString(column.Name) {
			errs = append(errs, fmt.Errorf("invalid column name %q", column.Name))
			continue
		}
		if _, dup := d.byName[column.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate column %q", column.Name))
			continue
		}
		if !column.Role.valid() {
			errs = append(errs, fmt.Errorf("column %q has unknown role %q", column.Name, column.Role))
			continue
		}
		if strings.TrimSpace(column.Type) == "" {
			errs = append(errs, fmt.Errorf("column %q has no sql type", column.Name))
			continue
		}
		if column.Default {
			if prev, ok := defaults[column.Role]; ok {
				errs = append(errs, fmt.Errorf("columns %q and %q are both default %s", prev, column.Name, column.Role))
				continue
			}
			defaults[column.Role] = column.Name
		}
		d.byName[column.Name] = len(d.columns)
		d.columns = append(d.columns, cloneColumn(column))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

func MustNew(table string, columns []Column) *Descriptor {
	d, err := New(table, columns)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return d
}

func (d *Descriptor) Table() string {
	return d.table
}

// Columns returns a copy of the columns in declaration order.
func (d *Descriptor) Columns() []Column {
	out := make([]Column, 0, len(d.columns))
	for _, column := range d.columns {
		out = append(out, cloneColumn(column))
	}
	return out
}

func (d *Descriptor) ColumnNames() []string {
	names := make([]string, 0, len(d.columns))
	for _, column := range d.columns {
		names = append(names, column.Name)
	}
	return names
}

func (d *Descriptor) Column(name string) (Column, bool) {
	idx, ok := d.byName[name]
	if !ok {
		return Column{}, false
	}
	return cloneColumn(d.columns[idx]), true
}

func (d *Descriptor) RoleOf(name string) (Role, bool) {
	idx, ok := d.byName[name]
	if !ok {
		return "", false
	}
	return d.columns[idx].Role, true
}

func (d *Descriptor) HasColumn(name string, role Role) bool {
	got, ok := d.RoleOf(name)
	return ok && got == role
}

func (d *Descriptor) ColumnsByRole(role Role) []Column {
	var out []Column
	for _, column := range d.columns {
		if column.Role == role {
			out = append(out, cloneColumn(column))
		}
	}
	return out
}

// DateColumn returns the first column with the date role.
func (d *Descriptor) DateColumn() (Column, bool) {
	return d.first(RoleDate, false)
}

func (d *Descriptor) Measures() []Column {
	return d.ColumnsByRole(RoleMeasure)
}

func (d *Descriptor) Dimensions() []Column {
	return d.ColumnsByRole(RoleDimension)
}

// DefaultMeasure returns the measure flagged as default, or the first measure.
func (d *Descriptor) DefaultMeasure() (Column, bool) {
	return d.first(RoleMeasure, true)
}

// DefaultDimension returns the dimension flagged as default, or the first dimension.
func (d *Descriptor) DefaultDimension() (Column, bool) {
	return d.first(RoleDimension, true)
}

func (d *Descriptor) first(role Role, preferDefault bool) (Column, bool) {
	var found *Column
	for i := range d.columns {
		column := &d.columns[i]
		if column.Role != role {
			continue
		}
		if preferDefault && column.Default {
			return cloneColumn(*column), true
		}
		if found == nil {
			found = column
		}
	}
	if found == nil {
		return Column{}, false
	}
	return cloneColumn(*found), true
}

func cloneColumn(column Column) Column {
	column.Aliases = append([]string(nil), column.Aliases...)
	column.Values = append([]string(nil), column.Values...)
	return column
}
