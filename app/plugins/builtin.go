package plugins

import (
	"github.com/kilianp07/doorbridge/config"
	corehistory "github.com/kilianp07/doorbridge/core/history"
)

func init() {
	RegisterStore("jsonl", func(cfg config.HistoryConfig) (corehistory.Store, error) {
		if cfg.MaxSizeMB > 0 {
			return corehistory.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return corehistory.NewJSONLStore(cfg.Path)
	})
	RegisterStore("sqlite", func(cfg config.HistoryConfig) (corehistory.Store, error) {
		return corehistory.NewSQLiteStore(cfg.Path)
	})
}
