package introspect

import "github.com/svco/svmigrate/migrate/sqlgen"

// queries holds the catalog queries of one dialect. Column and index queries
// take the table name as their only parameter.
type queries struct {
	tables  string
	columns string
	indexes string
}

var dialectQueries = map[sqlgen.Dialect]queries{
	sqlgen.SQLite: {
		tables: `
			SELECT name
			FROM sqlite_master
			WHERE type = 'table'
			  AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		columns: `
			SELECT name, type, "notnull" = 0 AS nullable, dflt_value AS dflt, pk > 0 AS pk
			FROM pragma_table_info(?)
			ORDER BY cid`,
		indexes: `
			SELECT il.name AS name, il."unique" AS uniq, group_concat(ii.name, ',') AS columns
			FROM pragma_index_list(?) AS il
			JOIN pragma_index_info(il.name) AS ii
			WHERE il.origin <> 'pk'
			GROUP BY il.name, il."unique"
			ORDER BY il.name`,
	},
	sqlgen.PostgreSQL: {
		tables: `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			  AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `
			SELECT
				c.column_name AS name,
				c.data_type AS type,
				c.is_nullable = 'YES' AS nullable,
				c.column_default AS dflt,
				EXISTS (
					SELECT 1
					FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage k
					  ON k.constraint_name = tc.constraint_name
					 AND k.table_schema = tc.table_schema
					WHERE tc.constraint_type = 'PRIMARY KEY'
					  AND tc.table_schema = c.table_schema
					  AND tc.table_name = c.table_name
					  AND k.column_name = c.column_name
				) AS pk
			FROM information_schema.columns c
			WHERE c.table_schema = current_schema()
			  AND c.table_name = ?
			ORDER BY c.ordinal_position`,
		indexes: `
			SELECT
				i.relname AS name,
				ix.indisunique AS uniq,
				string_agg(a.attname, ',' ORDER BY k.n) AS columns
			FROM pg_class t
			JOIN pg_namespace ns ON ns.oid = t.relnamespace
			JOIN pg_index ix ON ix.indrelid = t.oid
			JOIN pg_class i ON i.oid = ix.indexrelid
			CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, n)
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
			WHERE ns.nspname = current_schema()
			  AND t.relname = ?
			  AND NOT ix.indisprimary
			GROUP BY i.relname, ix.indisunique
			ORDER BY i.relname`,
	},
	sqlgen.MySQL: {
		tables: `
			SELECT table_name AS name
			FROM information_schema.tables
			WHERE table_schema = DATABASE()
			  AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `
			SELECT
				column_name AS name,
				column_type AS type,
				is_nullable = 'YES' AS nullable,
				column_default AS dflt,
				column_key = 'PRI' AS pk
			FROM information_schema.columns
			WHERE table_schema = DATABASE()
			  AND table_name = ?
			ORDER BY ordinal_position`,
		indexes: `
			SELECT
				index_name AS name,
				non_unique = 0 AS uniq,
				GROUP_CONCAT(column_name ORDER BY seq_in_index SEPARATOR ',') AS columns
			FROM information_schema.statistics
			WHERE table_schema = DATABASE()
			  AND table_name = ?
			  AND index_name <> 'PRIMARY'
			GROUP BY index_name, non_unique
			ORDER BY index_name`,
	},
}
