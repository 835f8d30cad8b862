// Package storage keeps the history of queried servers in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/woozymasta/samplauncher/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

const serverColumns = `
	ip, port, hostname, game_mode, language, country_code,
	players_online, max_players, is_passworded, count, first_seen, last_seen`

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New opens the database, sets connection pool parameters and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertServer inserts a server or refreshes the stored one with the same IP and port.
// The query counter is incremented and first_seen is kept on update; an empty
// country code never overwrites a known one.
func (r *Repository) UpsertServer(s models.ServerRecord) error {
	query := `
	INSERT INTO servers (` + serverColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(ip, port) DO UPDATE SET
		count          = count + 1,
		last_seen      = excluded.last_seen,
		hostname       = excluded.hostname,
		game_mode      = excluded.game_mode,
		language       = excluded.language,
		players_online = excluded.players_online,
		max_players    = excluded.max_players,
		is_passworded  = excluded.is_passworded,
		country_code   = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END;
	`

	_, err := r.db.Exec(query,
		s.IP, s.Port, s.Hostname, s.GameMode, s.Language, s.CountryCode,
		s.PlayersOnline, s.MaxPlayers, s.IsPassworded,
		s.FirstSeen, s.LastSeen,
	)

	return err
}

// GetServers returns all stored servers, most recently seen first.
func (r *Repository) GetServers() ([]models.ServerRecord, error) {
	return r.queryServers(`SELECT ` + serverColumns + ` FROM servers ORDER BY last_seen DESC`)
}

// GetServer returns the stored server for ip:port, or nil if there is none.
func (r *Repository) GetServer(ip string, port int) (*models.ServerRecord, error) {
	row := r.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE ip = ? AND port = ?`, ip, port)

	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// GetServersSubset returns stored servers for maintenance.
// If onlyEmpty is true, only servers stored without a hostname are returned.
func (r *Repository) GetServersSubset(onlyEmpty bool) ([]models.ServerRecord, error) {
	query := `SELECT ` + serverColumns + ` FROM servers`
	if onlyEmpty {
		query += ` WHERE hostname = ''`
	}

	return r.queryServers(query)
}

// DeleteServer removes the server stored for ip:port.
func (r *Repository) DeleteServer(ip string, port int) error {
	_, err := r.db.Exec(`DELETE FROM servers WHERE ip = ? AND port = ?`, ip, port)
	return err
}

// DeleteEmptyServers removes servers stored without a hostname and returns how many were deleted.
func (r *Repository) DeleteEmptyServers() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM servers WHERE hostname = ''`)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *Repository) queryServers(query string, args ...any) ([]models.ServerRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.ServerRecord
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (models.ServerRecord, error) {
	var s models.ServerRecord
	err := row.Scan(
		&s.IP, &s.Port, &s.Hostname, &s.GameMode, &s.Language, &s.CountryCode,
		&s.PlayersOnline, &s.MaxPlayers, &s.IsPassworded, &s.Count, &s.FirstSeen, &s.LastSeen,
	)

	return s, err
}
