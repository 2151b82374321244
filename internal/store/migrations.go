package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// createCertificationsTable is safe to run against a table created by an
// older seeding script: the column names match and IF NOT EXISTS keeps its rows.
const createCertificationsTable = `
	CREATE TABLE IF NOT EXISTS certifications_table (
		cert_name TEXT NOT NULL,
		points    REAL
	)
`

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create certifications table",
		SQL:     createCertificationsTable,
	},
}
