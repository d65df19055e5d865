package stores

import (
	"portfolio-server/config"
	"portfolio-server/core"
	"portfolio-server/stores/jsonfile"
	"portfolio-server/stores/memory"
	"portfolio-server/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore selects the work store backend from the configuration.
func GetStore(cfg *config.Config) core.WorkStore {
	var store core.WorkStore

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "sqlite":
		storageField["path"] = cfg.SQLitePath
		store = sqlite.NewStore(cfg.SQLitePath)
	case "memory":
		store = memory.NewStore()
	default:
		storageField["storageType"] = "jsonfile"
		storageField["path"] = cfg.WorksFile
		store = jsonfile.NewStore(cfg.WorksFile)
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
