// Package database provides the SQLite store behind the command journal.
//
// Open creates the database file (and its directory) on first use, applies
// WAL mode and the busy timeout, and limits the pool to a single connection
// to match SQLite's single-writer model. Migrate applies the versioned
// *.up.sql files from an fs.FS, each in its own transaction, and records
// them in schema_migrations.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
