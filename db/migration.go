package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ordering-helper/backend/logger"
)

// Migration is a single schema change, identified by a zero-padded version
// prefix (e.g. "001").
type Migration struct {
	Version   string    `json:"version"`
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"applied_at,omitempty"`
	Status    string    `json:"status"` // pending, applied, failed
	SQL       string    `json:"-"`
}

// MigrationManager tracks which schema migrations have been applied.
type MigrationManager struct {
	mu                sync.RWMutex
	migrationsPath    string
	appliedMigrations []Migration
	pendingMigrations []Migration
	databaseType      string // postgres, sqlite3
	schemaVersion     int
}

// MigrationConfig configures the migration manager.
type MigrationConfig struct {
	MigrationsPath string
	DatabaseType   string
}

var (
	defaultManager *MigrationManager
	once           sync.Once

	// defaultMigrations holds the relational schema of §3: Users, Stores,
	// Menus/MenuItems (including the per-store catch-all Menu referenced by
	// §4.4), the OCR tables, Orders/OrderItems/OrderSummaries, and the
	// static Languages lookup.
	defaultMigrations = map[string]string{
		"001_users_and_stores": `CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	line_user_id VARCHAR(64) UNIQUE,
	preferred_language VARCHAR(16) NOT NULL DEFAULT 'en',
	status VARCHAR(16) NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_users_line_user_id ON users (line_user_id);

CREATE TABLE IF NOT EXISTS stores (
	id BIGSERIAL PRIMARY KEY,
	display_name VARCHAR(255) NOT NULL DEFAULT '未命名店家',
	partner_level SMALLINT NOT NULL DEFAULT 0,
	place_id VARCHAR(128) UNIQUE,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	review_text TEXT,
	top_dishes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_stores_place_id ON stores (place_id) WHERE place_id IS NOT NULL;`,

		"002_menus_and_items": `CREATE TABLE IF NOT EXISTS menus (
	id BIGSERIAL PRIMARY KEY,
	store_id BIGINT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	version INT NOT NULL DEFAULT 1,
	effective_date DATE NOT NULL DEFAULT CURRENT_DATE,
	is_catch_all BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_menus_store_id ON menus (store_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_menus_catch_all ON menus (store_id) WHERE is_catch_all;

CREATE TABLE IF NOT EXISTS menu_items (
	id BIGSERIAL PRIMARY KEY,
	menu_id BIGINT NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
	name_zh VARCHAR(255) NOT NULL,
	price_small INT NOT NULL,
	price_large INT,
	category VARCHAR(100)
);

CREATE INDEX IF NOT EXISTS idx_menu_items_menu_id ON menu_items (menu_id);`,

		"003_ocr_tables": `CREATE TABLE IF NOT EXISTS ocr_menus (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	store_id BIGINT REFERENCES stores(id),
	captured_store_name VARCHAR(255),
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ocr_menus_user_id ON ocr_menus (user_id);
CREATE INDEX IF NOT EXISTS idx_ocr_menus_store_id ON ocr_menus (store_id);

CREATE TABLE IF NOT EXISTS ocr_menu_items (
	id BIGSERIAL PRIMARY KEY,
	ocr_menu_id BIGINT NOT NULL REFERENCES ocr_menus(id) ON DELETE CASCADE,
	item_name VARCHAR(255) NOT NULL,
	price_small INT NOT NULL DEFAULT 0,
	price_big INT NOT NULL DEFAULT 0,
	translated_desc TEXT
);

CREATE INDEX IF NOT EXISTS idx_ocr_menu_items_ocr_menu_id ON ocr_menu_items (ocr_menu_id);

CREATE TABLE IF NOT EXISTS ocr_menu_translations (
	id BIGSERIAL PRIMARY KEY,
	ocr_menu_item_id BIGINT NOT NULL REFERENCES ocr_menu_items(id) ON DELETE CASCADE,
	language_code VARCHAR(16) NOT NULL,
	translated_name VARCHAR(255) NOT NULL DEFAULT '',
	translated_description TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ocr_menu_translations_item_lang ON ocr_menu_translations (ocr_menu_item_id, language_code);`,

		"004_orders": `CREATE TABLE IF NOT EXISTS orders (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	store_id BIGINT NOT NULL REFERENCES stores(id),
	order_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	total_amount INT NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'completed', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);

CREATE TABLE IF NOT EXISTS order_items (
	id BIGSERIAL PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	menu_item_id BIGINT NOT NULL REFERENCES menu_items(id),
	quantity_small INT NOT NULL,
	subtotal INT NOT NULL,
	original_name VARCHAR(255) NOT NULL,
	translated_name VARCHAR(255) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);

CREATE TABLE IF NOT EXISTS order_summaries (
	id BIGSERIAL PRIMARY KEY,
	order_id BIGINT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
	chinese_summary TEXT NOT NULL,
	user_language_summary TEXT NOT NULL,
	user_language VARCHAR(16) NOT NULL,
	total_amount INT NOT NULL,
	voice_url TEXT,
	voice_duration_ms INT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,

		"005_languages": `CREATE TABLE IF NOT EXISTS languages (
	line_locale VARCHAR(16) PRIMARY KEY,
	translation_tag VARCHAR(16) NOT NULL,
	speech_tag VARCHAR(16) NOT NULL,
	display_name VARCHAR(64) NOT NULL
);

INSERT INTO languages (line_locale, translation_tag, speech_tag, display_name) VALUES
	('en', 'en', 'en-US', 'English'),
	('zh-TW', 'zh-tw', 'cmn-TW', '繁體中文'),
	('zh-CN', 'zh-cn', 'cmn-CN', '简体中文'),
	('ja', 'ja', 'ja-JP', '日本語'),
	('ko', 'ko', 'ko-KR', '한국어'),
	('fr', 'fr', 'fr-FR', 'Français'),
	('de', 'de', 'de-DE', 'Deutsch'),
	('es', 'es', 'es-ES', 'Español'),
	('it', 'it', 'it-IT', 'Italiano'),
	('pt', 'pt', 'pt-PT', 'Português'),
	('ru', 'ru', 'ru-RU', 'Русский'),
	('ar', 'ar', 'ar-SA', 'العربية'),
	('hi', 'hi', 'hi-IN', 'हिन्दी'),
	('th', 'th', 'th-TH', 'ภาษาไทย'),
	('vi', 'vi', 'vi-VN', 'Tiếng Việt')
ON CONFLICT (line_locale) DO NOTHING;`,
	}
)

// GetMigrationManager returns the singleton MigrationManager.
func GetMigrationManager() *MigrationManager {
	once.Do(func() {
		defaultManager = &MigrationManager{
			migrationsPath: "db/migrations",
			databaseType:   "postgres",
			schemaVersion:  0,
		}
	})
	return defaultManager
}

// Init prepares the migrations directory and loads any migrations already
// written to disk.
func (mm *MigrationManager) Init(config MigrationConfig) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if config.MigrationsPath != "" {
		mm.migrationsPath = config.MigrationsPath
	}
	if config.DatabaseType != "" {
		mm.databaseType = config.DatabaseType
	}

	if err := os.MkdirAll(mm.migrationsPath, 0755); err != nil {
		return fmt.Errorf("creating migrations directory: %w", err)
	}

	if err := mm.loadMigrations(); err != nil {
		logger.Warn("loading migrations from disk failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("migration manager initialized", map[string]interface{}{
		"migrations_path": mm.migrationsPath,
		"database_type":   mm.databaseType,
		"total":           len(mm.appliedMigrations) + len(mm.pendingMigrations),
	})

	return nil
}

// CreateDefaultMigrations writes the built-in migrations to disk if absent.
func (mm *MigrationManager) CreateDefaultMigrations() error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for name, sql := range defaultMigrations {
		filePath := filepath.Join(mm.migrationsPath, name+".sql")

		if _, err := os.Stat(filePath); err == nil {
			continue
		}

		if err := os.WriteFile(filePath, []byte(sql), 0644); err != nil {
			logger.Error("writing migration file failed", map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			})
			continue
		}

		logger.Info("migration file created", map[string]interface{}{
			"file": name,
			"path": filePath,
		})
	}

	return nil
}

// loadMigrations reads every *.sql file from the migrations directory.
func (mm *MigrationManager) loadMigrations() error {
	entries, err := os.ReadDir(mm.migrationsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version := strings.TrimSuffix(entry.Name(), ".sql")
		parts := strings.Split(version, "_")
		if len(parts) < 1 {
			continue
		}

		filePath := filepath.Join(mm.migrationsPath, entry.Name())
		sqlData, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn("reading migration file failed", map[string]interface{}{
				"file":  entry.Name(),
				"error": err.Error(),
			})
			continue
		}

		migrations = append(migrations, Migration{
			Version: parts[0],
			Name:    version,
			SQL:     string(sqlData),
			Status:  "pending",
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	mm.pendingMigrations = migrations

	return nil
}

// GetMigrations returns all known migrations, applied and pending.
func (mm *MigrationManager) GetMigrations() map[string]interface{} {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	return map[string]interface{}{
		"applied": mm.appliedMigrations,
		"pending": mm.pendingMigrations,
		"total":   len(mm.appliedMigrations) + len(mm.pendingMigrations),
		"version": mm.schemaVersion,
	}
}

// GetMigrationStatus summarizes migration progress.
func (mm *MigrationManager) GetMigrationStatus() map[string]interface{} {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	return map[string]interface{}{
		"applied_count":    len(mm.appliedMigrations),
		"pending_count":    len(mm.pendingMigrations),
		"current_version":  mm.schemaVersion,
		"last_applied": func() *time.Time {
			if len(mm.appliedMigrations) > 0 {
				return &mm.appliedMigrations[len(mm.appliedMigrations)-1].AppliedAt
			}
			return nil
		}(),
	}
}

// MarkMigrationApplied moves a migration from pending to applied.
func (mm *MigrationManager) MarkMigrationApplied(version string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for i, m := range mm.pendingMigrations {
		if m.Version == version {
			m.AppliedAt = time.Now()
			m.Status = "applied"
			mm.appliedMigrations = append(mm.appliedMigrations, m)
			mm.pendingMigrations = append(mm.pendingMigrations[:i], mm.pendingMigrations[i+1:]...)

			logger.Info("migration applied", map[string]interface{}{
				"version": version,
				"name":    m.Name,
			})

			return nil
		}
	}

	return fmt.Errorf("migration not found: %s", version)
}

// MarkMigrationFailed records a migration as failed without advancing it.
func (mm *MigrationManager) MarkMigrationFailed(version string, errMsg string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for i, m := range mm.pendingMigrations {
		if m.Version == version {
			m.Status = "failed"
			mm.pendingMigrations[i] = m

			logger.Error("migration failed", map[string]interface{}{
				"version": version,
				"name":    m.Name,
				"error":   errMsg,
			})

			return nil
		}
	}

	return fmt.Errorf("migration not found: %s", version)
}

// RollbackMigration moves a migration back from applied to pending.
func (mm *MigrationManager) RollbackMigration(version string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for i, m := range mm.appliedMigrations {
		if m.Version == version {
			m.Status = "pending"
			mm.pendingMigrations = append(mm.pendingMigrations, m)
			mm.appliedMigrations = append(mm.appliedMigrations[:i], mm.appliedMigrations[i+1:]...)

			logger.Info("migration rolled back", map[string]interface{}{
				"version": version,
				"name":    m.Name,
			})

			return nil
		}
	}

	return fmt.Errorf("applied migration not found: %s", version)
}

// GetNextMigration returns the next pending migration, if any.
func (mm *MigrationManager) GetNextMigration() *Migration {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if len(mm.pendingMigrations) > 0 {
		return &mm.pendingMigrations[0]
	}

	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (mm *MigrationManager) GetAppliedMigrations() []Migration {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	return mm.appliedMigrations
}

// GetPendingMigrations returns all pending migrations.
func (mm *MigrationManager) GetPendingMigrations() []Migration {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	return mm.pendingMigrations
}

// UpdateSchemaVersion records the current schema version.
func (mm *MigrationManager) UpdateSchemaVersion(version int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.schemaVersion = version
	logger.Info("schema version updated", map[string]interface{}{
		"version": version,
	})
}
