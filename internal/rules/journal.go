package rules

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Hara602/micStreamer/internal/model"
	_ "modernc.org/sqlite"
)

// Journal 规则审计库
// 规则文件才是事实来源，这里只做历史留档，方便 CLI 回看谁在什么时候加了什么
type Journal struct {
	db *sql.DB
}

// OpenJournal 初始化数据库表结构
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS rule_history (
		vendor_id TEXT,
		product_id TEXT,
		port_pattern TEXT,
		match_mode TEXT,
		friendly_name TEXT,
		uniq_tag TEXT,
		source_name TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Record 留档一条已写入规则文件的规则
func (j *Journal) Record(r model.MappingRule) error {
	_, err := j.db.Exec(
		"INSERT INTO rule_history(vendor_id,product_id,port_pattern,match_mode,friendly_name,uniq_tag,source_name,created_at) VALUES (?,?,?,?,?,?,?,?)",
		r.VendorID, r.ProductID, r.PortPattern, r.Mode.String(), r.FriendlyName, r.UniqTag, r.SourceName, r.CreatedAt,
	)
	return err
}

// History 按时间倒序返回留档记录
func (j *Journal) History(limit int) ([]model.MappingRule, error) {
	rows, err := j.db.Query(
		"SELECT vendor_id,product_id,port_pattern,match_mode,friendly_name,uniq_tag,source_name,created_at FROM rule_history ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MappingRule
	for rows.Next() {
		var r model.MappingRule
		var mode string
		var created time.Time
		if err := rows.Scan(&r.VendorID, &r.ProductID, &r.PortPattern, &mode, &r.FriendlyName, &r.UniqTag, &r.SourceName, &created); err != nil {
			return nil, err
		}
		r.Mode, _ = model.ParseMatchMode(mode)
		r.CreatedAt = created
		out = append(out, r)
	}
	return out, rows.Err()
}
