package sqlmap

import "strings"

// ResultShape describes what executing a statement is expected to produce.
type ResultShape int

const (
	ShapeRaw ResultShape = iota
	ShapeLastInsertID
	ShapeAffectedRows
	ShapeUpdate
	ShapeDelete
	ShapeRow
	ShapeRowSet
	ShapeBatch
	ShapeCount
)

var shapeNames = map[ResultShape]string{
	ShapeRaw:          "RAW",
	ShapeLastInsertID: "LAST_INSERT_ID",
	ShapeAffectedRows: "AFFECTED_ROWS",
	ShapeUpdate:       "UPDATE",
	ShapeDelete:       "DELETE",
	ShapeRow:          "ROW",
	ShapeRowSet:       "ROW_SET",
	ShapeBatch:        "BATCH",
	ShapeCount:        "COUNT",
}

func (s ResultShape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "RAW"
}

// ParseResultShape is the inverse of String. Unknown names map to ShapeRaw.
func ParseResultShape(name string) ResultShape {
	upper := strings.ToUpper(name)
	for shape, n := range shapeNames {
		if n == upper {
			return shape
		}
	}
	return ShapeRaw
}

// ShapeTable maps a logical result key to a result shape.
// It is built once and only read afterwards.
type ShapeTable map[string]ResultShape

// DefaultShapeTable returns the standard result key lookup.
func DefaultShapeTable() ShapeTable {
	return ShapeTable{
		"insert":     ShapeLastInsertID,
		"insertNoId": ShapeAffectedRows,
		"update":     ShapeUpdate,
		"delete":     ShapeDelete,
		"truncate":   ShapeDelete,
		"row":        ShapeRow,
		"select":     ShapeRowSet,
		"batch":      ShapeBatch,
		"count":      ShapeCount,
	}
}

// Lookup never fails: unrecognized keys are ShapeRaw.
func (t ShapeTable) Lookup(key string) ResultShape {
	if shape, ok := t[key]; ok {
		return shape
	}
	return ShapeRaw
}

var defaultShapes = DefaultShapeTable()

// ResultShapeFor looks up key in the default table.
func ResultShapeFor(key string) ResultShape {
	return defaultShapes.Lookup(key)
}

// resultKey is the override when declared, else the statement kind name.
func resultKey(def *Definition) string {
	if def.ResultKey != "" {
		return def.ResultKey
	}
	return def.Kind.String()
}
