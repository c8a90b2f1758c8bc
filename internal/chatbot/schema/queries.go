package schema

const systemSchemas = `('pg_catalog', 'information_schema')`

const tablesQuery = `
	SELECT table_schema, table_name
	FROM information_schema.tables
	WHERE table_schema NOT IN ` + systemSchemas + `
	ORDER BY table_schema, table_name`

const columnsQuery = `
	SELECT table_schema, table_name, column_name, data_type,
	       character_maximum_length, column_default, is_nullable
	FROM information_schema.columns
	WHERE table_schema NOT IN ` + systemSchemas + `
	ORDER BY table_schema, table_name, ordinal_position`

const primaryKeysQuery = `
	SELECT tc.table_schema, tc.table_name, kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name
	 AND tc.table_schema = kcu.table_schema
	 AND tc.table_name = kcu.table_name
	WHERE tc.constraint_type = 'PRIMARY KEY'
	  AND tc.table_schema NOT IN ` + systemSchemas + `
	ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position`

// foreignKeysQuery pairs each referencing column with its referenced column
// by position within the constraint, so composite keys map column to column.
const foreignKeysQuery = `
	SELECT sn.nspname, st.relname, sa.attname,
	       tn.nspname, tt.relname, ta.attname
	FROM pg_catalog.pg_constraint c
	CROSS JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(src, dst, pos)
	JOIN pg_catalog.pg_class st ON st.oid = c.conrelid
	JOIN pg_catalog.pg_namespace sn ON sn.oid = st.relnamespace
	JOIN pg_catalog.pg_attribute sa ON sa.attrelid = c.conrelid AND sa.attnum = k.src
	JOIN pg_catalog.pg_class tt ON tt.oid = c.confrelid
	JOIN pg_catalog.pg_namespace tn ON tn.oid = tt.relnamespace
	JOIN pg_catalog.pg_attribute ta ON ta.attrelid = c.confrelid AND ta.attnum = k.dst
	WHERE c.contype = 'f'
	  AND sn.nspname NOT IN ` + systemSchemas + `
	ORDER BY sn.nspname, st.relname, c.conname, k.pos`
