package plugins

import (
	"github.com/kilianp07/doorbridge/config"
	corehistory "github.com/kilianp07/doorbridge/core/history"
)

// StoreFactory builds an event history store from its configuration.
type StoreFactory func(cfg config.HistoryConfig) (corehistory.Store, error)

// Stores maps history backend names to their factories.
var Stores = map[string]StoreFactory{}

func RegisterStore(name string, f StoreFactory) { Stores[name] = f }
