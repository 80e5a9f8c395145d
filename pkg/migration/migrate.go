// Package migration はSQLiteデータベースのスキーマ適用を管理する。
// embed.FSに埋め込まれたSQLファイルをバージョン順に適用し、適用済みの
// 最終バージョンをschema_migrationsテーブルで追跡する。
package migration

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"
)

// migrationFile は1つのマイグレーションファイルを表す。
// ファイル名形式: 000001_description.up.sql
type migrationFile struct {
	// version はファイル名先頭の連番。
	version int
	// name はファイル名の説明部分。
	name string
	// path はfsys内のファイルパス。
	path string
}

// Run は埋め込まれたマイグレーションをバージョン順に適用する。
// 適用済みバージョン以下のファイルはスキップするため、起動のたびに
// 呼び出しても安全。各マイグレーションはトランザクション内で適用する。
func Run(db *sql.DB, fsys fs.FS, dir string) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	pending, err := pendingMigrations(fsys, dir, current)
	if err != nil {
		return fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}

	for _, m := range pending {
		if err := apply(db, fsys, m); err != nil {
			return fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", m.version, m.name, err)
		}
		log.Printf("[Migration] %06d_%s を適用しました", m.version, m.name)
	}

	return nil
}

// currentVersion は適用済みマイグレーションの最大バージョンを返す。
// 未適用の場合は0を返す。
func currentVersion(db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

// pendingMigrations はafterより新しいup.sqlファイルをバージョン順に返す。
func pendingMigrations(fsys fs.FS, dir string, after int) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var pending []migrationFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, ok := parseFilename(entry.Name())
		if !ok || m.version <= after {
			continue
		}
		m.path = dir + "/" + entry.Name()
		pending = append(pending, m)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].version < pending[j].version
	})
	return pending, nil
}

// parseFilename はファイル名からバージョンと説明を取り出す。
// 形式に合わないファイルは無視する。
func parseFilename(filename string) (migrationFile, bool) {
	if !strings.HasSuffix(filename, ".up.sql") {
		return migrationFile{}, false
	}
	prefix, rest, found := strings.Cut(filename, "_")
	if !found {
		return migrationFile{}, false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return migrationFile{}, false
	}
	return migrationFile{
		version: version,
		name:    strings.TrimSuffix(rest, ".up.sql"),
	}, true
}

// apply は1つのマイグレーションをトランザクション内で適用し、バージョンを記録する。
func apply(db *sql.DB, fsys fs.FS, m migrationFile) error {
	content, err := fs.ReadFile(fsys, m.path)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
