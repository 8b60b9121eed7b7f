package sqlstore

const (
	createFilesTableSQLite = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL UNIQUE,
	file_type TEXT NOT NULL DEFAULT '',
	upload_date DATETIME NOT NULL,
	file_path TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_files_filename ON files(filename);
`
	createFilesTablePostgres = `
CREATE TABLE IF NOT EXISTS files (
	id BIGSERIAL PRIMARY KEY,
	filename TEXT NOT NULL UNIQUE,
	file_type TEXT NOT NULL DEFAULT '',
	upload_date TIMESTAMPTZ NOT NULL,
	file_path TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_files_filename ON files(filename);
`

	createCDRTableSQLite = `
CREATE TABLE IF NOT EXISTS cdr_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	timestamp DATETIME NOT NULL,
	caller_number TEXT NOT NULL DEFAULT '',
	receiver_number TEXT NOT NULL DEFAULT '',
	duration REAL NOT NULL DEFAULT 0,
	call_type TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_cdr_records_file_id ON cdr_records(file_id);
`
	createCDRTablePostgres = `
CREATE TABLE IF NOT EXISTS cdr_records (
	id BIGSERIAL PRIMARY KEY,
	file_id BIGINT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	timestamp TIMESTAMPTZ NOT NULL,
	caller_number TEXT NOT NULL DEFAULT '',
	receiver_number TEXT NOT NULL DEFAULT '',
	duration DOUBLE PRECISION NOT NULL DEFAULT 0,
	call_type TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cdr_records_file_id ON cdr_records(file_id);
`

	createRevenueTableSQLite = `
CREATE TABLE IF NOT EXISTS revenue_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	timestamp DATETIME NOT NULL,
	region TEXT NOT NULL DEFAULT '',
	service_type TEXT NOT NULL DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_revenue_records_file_id ON revenue_records(file_id);
`
	createRevenueTablePostgres = `
CREATE TABLE IF NOT EXISTS revenue_records (
	id BIGSERIAL PRIMARY KEY,
	file_id BIGINT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	timestamp TIMESTAMPTZ NOT NULL,
	region TEXT NOT NULL DEFAULT '',
	service_type TEXT NOT NULL DEFAULT '',
	amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_revenue_records_file_id ON revenue_records(file_id);
`
)

func (d *DB) ddl(sqlite, postgres string) string {
	if d.dialect == DialectPostgres {
		return postgres
	}
	return sqlite
}
