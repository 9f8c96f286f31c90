// Package store implements the persistence layer (SPEC_FULL.md §4.8):
// a SQLite-backed snapshot of the rule list, hook registrations, and
// per-plugin configuration maps, so commands like rule-add and
// plugin-config survive a bot restart without depending on the config
// file being rewritten. A bot started without a data directory
// configured never opens a Store and behaves exactly per spec.md, with
// no persistence — this package is purely additive.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/markand/irccd/internal/hook"
	"github.com/markand/irccd/internal/rule"
)

// Store wraps a SQLite database holding rule/hook/plugin-config
// snapshots.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS rules (
		idx      INTEGER PRIMARY KEY,
		servers  TEXT NOT NULL DEFAULT '[]',
		channels TEXT NOT NULL DEFAULT '[]',
		origins  TEXT NOT NULL DEFAULT '[]',
		plugins  TEXT NOT NULL DEFAULT '[]',
		events   TEXT NOT NULL DEFAULT '[]',
		action   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hooks (
		id     TEXT PRIMARY KEY,
		target TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plugin_config (
		plugin_id TEXT NOT NULL,
		kind      TEXT NOT NULL,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (plugin_id, kind, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRules replaces the entire persisted rule list with rules, in
// order.
func (s *Store) SaveRules(rules []rule.Rule) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM rules"); err != nil {
		return err
	}
	for i, r := range rules {
		servers, _ := json.Marshal(r.Servers)
		channels, _ := json.Marshal(r.Channels)
		origins, _ := json.Marshal(r.Origins)
		plugins, _ := json.Marshal(r.Plugins)
		events, _ := json.Marshal(r.Events)
		if _, err := tx.Exec(
			`INSERT INTO rules (idx, servers, channels, origins, plugins, events, action) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, string(servers), string(channels), string(origins), string(plugins), string(events), string(r.Action),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRules returns the persisted rule list, in index order.
func (s *Store) LoadRules() ([]rule.Rule, error) {
	rows, err := s.db.Query(`SELECT servers, channels, origins, plugins, events, action FROM rules ORDER BY idx ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rule.Rule
	for rows.Next() {
		var servers, channels, origins, plugins, events, action string
		if err := rows.Scan(&servers, &channels, &origins, &plugins, &events, &action); err != nil {
			return nil, err
		}
		var r rule.Rule
		r.Action = rule.Action(action)
		_ = json.Unmarshal([]byte(servers), &r.Servers)
		_ = json.Unmarshal([]byte(channels), &r.Channels)
		_ = json.Unmarshal([]byte(origins), &r.Origins)
		_ = json.Unmarshal([]byte(plugins), &r.Plugins)
		_ = json.Unmarshal([]byte(events), &r.Events)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveHook upserts a hook registration.
func (s *Store) SaveHook(h hook.Hook) error {
	_, err := s.db.Exec(
		`INSERT INTO hooks (id, target) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET target = excluded.target`,
		h.ID, h.Target,
	)
	return err
}

// DeleteHook removes a hook registration.
func (s *Store) DeleteHook(id string) error {
	_, err := s.db.Exec(`DELETE FROM hooks WHERE id = ?`, id)
	return err
}

// LoadHooks returns all persisted hooks.
func (s *Store) LoadHooks() ([]hook.Hook, error) {
	rows, err := s.db.Query(`SELECT id, target FROM hooks ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hook.Hook
	for rows.Next() {
		var h hook.Hook
		if err := rows.Scan(&h.ID, &h.Target); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// pluginConfigKind names one of the three plugin configuration maps
// (spec.md §3 "Plugin": options, templates, paths).
type pluginConfigKind string

const (
	kindOption   pluginConfigKind = "option"
	kindTemplate pluginConfigKind = "template"
	kindPath     pluginConfigKind = "path"
)

// SavePluginOption upserts one key/value pair in a plugin's options
// map.
func (s *Store) SavePluginOption(pluginID, key, value string) error {
	return s.savePluginEntry(pluginID, kindOption, key, value)
}

// SavePluginTemplate upserts one key/value pair in a plugin's
// templates map.
func (s *Store) SavePluginTemplate(pluginID, key, value string) error {
	return s.savePluginEntry(pluginID, kindTemplate, key, value)
}

// SavePluginPath upserts one key/value pair in a plugin's paths map.
func (s *Store) SavePluginPath(pluginID, key, value string) error {
	return s.savePluginEntry(pluginID, kindPath, key, value)
}

func (s *Store) savePluginEntry(pluginID string, kind pluginConfigKind, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO plugin_config (plugin_id, kind, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(plugin_id, kind, key) DO UPDATE SET value = excluded.value`,
		pluginID, string(kind), key, value,
	)
	return err
}

// LoadPluginConfig returns the persisted options/templates/paths maps
// for one plugin id. Missing entries yield empty (non-nil) maps.
func (s *Store) LoadPluginConfig(pluginID string) (options, templates, paths map[string]string, err error) {
	options = map[string]string{}
	templates = map[string]string{}
	paths = map[string]string{}

	rows, err := s.db.Query(`SELECT kind, key, value FROM plugin_config WHERE plugin_id = ?`, pluginID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, key, value string
		if err := rows.Scan(&kind, &key, &value); err != nil {
			return nil, nil, nil, err
		}
		switch pluginConfigKind(kind) {
		case kindOption:
			options[key] = value
		case kindTemplate:
			templates[key] = value
		case kindPath:
			paths[key] = value
		}
	}
	return options, templates, paths, rows.Err()
}
