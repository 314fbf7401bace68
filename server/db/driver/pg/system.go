// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package pg

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"decred.org/ringdex/server/db/driver/pg/internal"
	_ "github.com/lib/pq" // Start the PostgreSQL sql driver
)

const publicSchema = "public"

// dataSourceName builds the lib/pq connection string. The host may be an IP
// address or hostname for a TCP connection, or an absolute path to a UNIX
// domain socket directory, in which case the port is ignored.
func dataSourceName(host, port, user, pass, dbName string) string {
	params := []string{"host=" + host, "user=" + user, "dbname=" + dbName, "sslmode=disable"}
	if pass != "" {
		params = append(params, "password="+pass)
	}
	if !strings.HasPrefix(host, "/") {
		params = append(params, "port="+port)
	}
	return strings.Join(params, " ")
}

// connect opens a connection to a PostgreSQL database and verifies that it is
// alive. The caller is responsible for calling Close() on the returned db when
// finished using it.
func connect(ctx context.Context, host, port, user, pass, dbName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName(host, port, user, pass, dbName))
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// sqlExecutor is implemented by both sql.DB and sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqlExec executes the SQL statement string with any optional arguments, and
// returns the number of rows affected.
func sqlExec(ctx context.Context, db sqlExecutor, stmt string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf(`error in RowsAffected: %w`, err)
	}
	return n, nil
}

// tableExists checks if the specified table exists in the schema.
func tableExists(ctx context.Context, db *sql.DB, schema, tableName string) (exists bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pg_tables
		WHERE schemaname = $1 AND tablename = $2);`, schema, tableName).Scan(&exists)
	return
}

// createTable creates a table with the given name using the provided SQL
// statement, if it does not already exist. The statement has a single %s verb
// for the schema-qualified table name.
func createTable(ctx context.Context, db *sql.DB, fmtStmt, schema, tableName string) (bool, error) {
	exists, err := tableExists(ctx, db, schema, tableName)
	if err != nil {
		return false, err
	}
	qualified := schema + "." + tableName
	if exists {
		log.Tracef(`Table "%s" exists.`, qualified)
		return false, nil
	}
	log.Infof(`Creating the "%s" table.`, qualified)
	if _, err = db.ExecContext(ctx, fmt.Sprintf(fmtStmt, qualified)); err != nil {
		return false, err
	}
	return true, nil
}

func dropTable(ctx context.Context, db sqlExecutor, tableName string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, tableName))
	return err
}

// unitRE matches any input, splitting a pg_settings unit such as "8kB" into a
// numeric part and a base unit.
var unitRE = regexp.MustCompile(`([-\d\.]*)\s*(.*)`)

// parseUnit is used to separate a "unit" from pg_settings such as "8kB" into a
// numeric component and a base unit string.
func parseUnit(unit string) (multiple float64, baseUnit string, err error) {
	matches := unitRE.FindStringSubmatch(unit)
	baseUnit = strings.TrimSuffix(matches[2], " ")

	// An empty numeric part is 1, and a lone "-" is a negative sign.
	switch matches[1] {
	case "":
		multiple = 1
	case "-":
		multiple = -1
	default:
		multiple, err = strconv.ParseFloat(matches[1], 64)
		if err != nil {
			baseUnit = ""
		}
	}
	return
}

// PGSetting describes a PostgreSQL setting scanned from pg_settings.
type PGSetting struct {
	Name, Setting, Unit, ShortDesc, Source, SourceFile, SourceLine string
}

// Value is the setting combined with its unit, e.g. 16 and "8kB" is "128 kB".
// Non-numeric settings have no unit.
func (s *PGSetting) Value() string {
	num, err := strconv.ParseFloat(s.Setting, 64)
	if err != nil {
		return s.Setting
	}
	mult, unit, err := parseUnit(s.Unit)
	if err != nil {
		return s.Setting + " " + s.Unit
	}
	if unit != "" {
		unit = " " + unit
	}
	return fmt.Sprintf("%.12g%s", num*mult, unit)
}

// PGSettings facilitates looking up a PGSetting based on a setting's Name.
type PGSettings map[string]PGSetting

// String lists the settings one per line, sorted by name, with the source of
// any setting that does not have its default value.
func (pgs PGSettings) String() string {
	names := make([]string, 0, len(pgs))
	width := 0
	for name := range pgs {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		s := pgs[name]
		fmt.Fprintf(&sb, "%*s = %s", width, name, s.Value())
		switch {
		case s.SourceFile != "":
			fmt.Fprintf(&sb, " (%s %s:%s)", s.Source, s.SourceFile, s.SourceLine)
		case s.Source != "" && s.Source != "default":
			fmt.Fprintf(&sb, " (%s)", s.Source)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// retrievePGVersion retrieves the version of the connected PostgreSQL server.
func retrievePGVersion(ctx context.Context, db *sql.DB) (ver string, err error) {
	err = db.QueryRowContext(ctx, internal.RetrievePGVersion).Scan(&ver)
	return
}

// retrieveSysSettings retrieves the PostgreSQL settings provided a query that
// returns the following columns from pg_setting in order: name, setting, unit,
// short_desc, source, sourcefile, sourceline.
func retrieveSysSettings(ctx context.Context, db *sql.DB, stmt string) (PGSettings, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(PGSettings)
	for rows.Next() {
		var name, setting, unit, shortDesc, source, sourceFile sql.NullString
		var sourceLine sql.NullInt64
		err = rows.Scan(&name, &setting, &unit, &shortDesc,
			&source, &sourceFile, &sourceLine)
		if err != nil {
			return nil, err
		}

		s := PGSetting{
			Name:      name.String,
			Setting:   setting.String,
			Unit:      unit.String,
			ShortDesc: shortDesc.String,
			Source:    source.String,
		}
		// An empty file for a "configuration file" source means the user
		// lacks the privileges to see it.
		if s.Source == "configuration file" {
			s.Source = "conf file"
			s.SourceFile = "NO PERMISSION"
			if sourceFile.String != "" {
				s.SourceFile = sourceFile.String
				s.SourceLine = strconv.FormatInt(sourceLine.Int64, 10)
			}
		}
		settings[s.Name] = s
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

// checkSettings optionally logs the PostgreSQL configuration, and warns if
// synchronous_commit is off. A committed ring must survive a crash of the
// server, so the setting is never changed here.
func checkSettings(ctx context.Context, db *sql.DB, hidePGConfig bool) error {
	if !hidePGConfig {
		perfSettings, err := retrieveSysSettings(ctx, db, internal.RetrieveSysSettingsPerformance)
		if err != nil {
			return err
		}
		log.Infof("postgres configuration settings:\n%v", perfSettings)

		// Key server settings help when debugging connectivity issues.
		servSettings, err := retrieveSysSettings(ctx, db, internal.RetrieveSysSettingsServer)
		if err != nil {
			return err
		}
		log.Infof("postgres server settings:\n%v", servSettings)
	}

	var syncCommit string
	if err := db.QueryRowContext(ctx, internal.RetrieveSyncCommitSetting).Scan(&syncCommit); err != nil {
		return err
	}
	if syncCommit == "off" {
		log.Warnf(`The synchronous_commit setting is "off". Recently committed ` +
			`rings may be lost if the database server crashes.`)
	}
	return nil
}
