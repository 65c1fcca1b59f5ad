package builder

import "fmt"

// ErrMissingRequired is returned when a param listed in the definition's
// require list is absent from the data.
type ErrMissingRequired struct {
	ID   string
	Name string
}

func (e ErrMissingRequired) Error() string {
	return fmt.Sprintf("sql map %s: required param %q missing", e.ID, e.Name)
}

// ErrMissingParam is returned when a :name placeholder has no value.
type ErrMissingParam struct {
	ID   string
	Name string
}

func (e ErrMissingParam) Error() string {
	return fmt.Sprintf("sql map %s: no value for placeholder :%s", e.ID, e.Name)
}

// ErrEmptyList is returned when a slice bound to a placeholder has no elements.
type ErrEmptyList struct {
	ID   string
	Name string
}

func (e ErrEmptyList) Error() string {
	return fmt.Sprintf("sql map %s: empty list for placeholder :%s", e.ID, e.Name)
}

// ErrInvalidColumn is returned when a data key used as a column name is not a plain identifier.
type ErrInvalidColumn struct {
	ID     string
	Column string
}

func (e ErrInvalidColumn) Error() string {
	return fmt.Sprintf("sql map %s: invalid column name %q", e.ID, e.Column)
}

// ErrListColumn is returned when #INSERT# or #DATA# would expand a column
// whose value is a list, which would bind several values to one column.
type ErrListColumn struct {
	ID     string
	Column string
}

func (e ErrListColumn) Error() string {
	return fmt.Sprintf("sql map %s: column %q has a list value", e.ID, e.Column)
}

// ErrNoColumns is returned when #INSERT# or #DATA# has nothing to expand.
type ErrNoColumns struct {
	ID    string
	Token string
}

func (e ErrNoColumns) Error() string {
	return fmt.Sprintf("sql map %s: %s has no columns to expand", e.ID, e.Token)
}

// ErrInvalidOption is returned for a malformed limit/offset option.
type ErrInvalidOption struct {
	ID    string
	Name  string
	Value any
}

func (e ErrInvalidOption) Error() string {
	return fmt.Sprintf("sql map %s: invalid option %s=%v", e.ID, e.Name, e.Value)
}
