// Package schema introspects the target database catalog into a
// models.SchemaSnapshot and optionally caches the result in Redis.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

// Builder reads information_schema and pg_catalog. It never writes to the
// database.
type Builder struct {
	db *sql.DB
}

func NewBuilder(db *sql.DB) *Builder {
	return &Builder{db: db}
}

// Build returns a snapshot of every non-system schema. Any catalog query
// failure aborts the build with SCHEMA_INTROSPECTION_FAILED.
func (b *Builder) Build(ctx context.Context) (models.SchemaSnapshot, error) {
	tables := make(map[string]map[string]*models.TableInfo)
	table := func(schemaName, tableName string) *models.TableInfo {
		if tables[schemaName] == nil {
			tables[schemaName] = make(map[string]*models.TableInfo)
		}
		t, ok := tables[schemaName][tableName]
		if !ok {
			t = &models.TableInfo{Columns: []models.Column{}, ForeignKeys: []models.ForeignKey{}}
			tables[schemaName][tableName] = t
		}
		return t
	}

	err := b.scan(ctx, tablesQuery, func(rows *sql.Rows) error {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			return err
		}
		table(schemaName, tableName)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewSchemaIntrospectionFailedError(fmt.Errorf("list tables: %w", err))
	}

	err = b.scan(ctx, columnsQuery, func(rows *sql.Rows) error {
		var (
			schemaName, tableName, name, dataType, nullable string
			maxLength                                       sql.NullInt64
			def                                             sql.NullString
		)
		if err := rows.Scan(&schemaName, &tableName, &name, &dataType, &maxLength, &def, &nullable); err != nil {
			return err
		}
		col := models.Column{Name: name, Type: dataType, Nullable: nullable == "YES"}
		if maxLength.Valid {
			v := maxLength.Int64
			col.MaxLength = &v
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		t := table(schemaName, tableName)
		t.Columns = append(t.Columns, col)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewSchemaIntrospectionFailedError(fmt.Errorf("list columns: %w", err))
	}

	pkColumns := make(map[[2]string][]string)
	err = b.scan(ctx, primaryKeysQuery, func(rows *sql.Rows) error {
		var schemaName, tableName, column string
		if err := rows.Scan(&schemaName, &tableName, &column); err != nil {
			return err
		}
		key := [2]string{schemaName, tableName}
		pkColumns[key] = append(pkColumns[key], column)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewSchemaIntrospectionFailedError(fmt.Errorf("list primary keys: %w", err))
	}
	for key, cols := range pkColumns {
		// composite keys are left absent
		if len(cols) == 1 {
			pk := cols[0]
			table(key[0], key[1]).PrimaryKey = &pk
		}
	}

	err = b.scan(ctx, foreignKeysQuery, func(rows *sql.Rows) error {
		var schemaName, tableName string
		var fk models.ForeignKey
		if err := rows.Scan(&schemaName, &tableName, &fk.Column, &fk.TargetSchema, &fk.TargetTable, &fk.TargetColumn); err != nil {
			return err
		}
		t := table(schemaName, tableName)
		t.ForeignKeys = append(t.ForeignKeys, fk)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewSchemaIntrospectionFailedError(fmt.Errorf("list foreign keys: %w", err))
	}

	snapshot := make(models.SchemaSnapshot, len(tables))
	for schemaName, byName := range tables {
		snapshot[schemaName] = make(map[string]models.TableInfo, len(byName))
		for tableName, t := range byName {
			snapshot[schemaName][tableName] = *t
		}
	}
	return snapshot, nil
}

func (b *Builder) scan(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
