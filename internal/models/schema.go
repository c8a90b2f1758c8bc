package models

// Column describes one column in catalog ordinal order.
type Column struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	MaxLength *int64  `json:"max_length"`
	Default   *string `json:"default"`
	Nullable  bool    `json:"nullable"`
}

// ForeignKey is one edge from a source column to a target column.
type ForeignKey struct {
	Column       string `json:"column"`
	TargetSchema string `json:"target_schema"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// TableInfo describes a table. PrimaryKey is nil unless the table has a
// single-column primary key.
type TableInfo struct {
	Columns     []Column     `json:"columns"`
	PrimaryKey  *string      `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// SchemaSnapshot maps schema name -> table name -> table description.
type SchemaSnapshot map[string]map[string]TableInfo

func (s SchemaSnapshot) IsEmpty() bool {
	return s.TableCount() == 0
}

func (s SchemaSnapshot) TableCount() int {
	n := 0
	for _, tables := range s {
		n += len(tables)
	}
	return n
}

func (s SchemaSnapshot) ColumnCount() int {
	n := 0
	for _, tables := range s {
		for _, t := range tables {
			n += len(t.Columns)
		}
	}
	return n
}

// Table looks up a table by schema and name.
func (s SchemaSnapshot) Table(schema, table string) (TableInfo, bool) {
	tables, ok := s[schema]
	if !ok {
		return TableInfo{}, false
	}
	t, ok := tables[table]
	return t, ok
}
