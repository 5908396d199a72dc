package integration

import (
	"path/filepath"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/leveldb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-disputes/disputes"
	"github.com/rony4d/go-disputes/disputes/dstore"
	"github.com/rony4d/go-disputes/disputes/forks"
	"github.com/rony4d/go-disputes/disputes/slashing"
	"github.com/rony4d/go-disputes/relay"
)

var log = logrus.WithField("prefix", "integration")

// Engine is a dispute module with the collaborators a standalone host needs:
// a local fork tree and an in-memory slashing pool.
type Engine struct {
	Rules  relay.Rules
	DB     kvdb.Store
	Store  *dstore.Store
	Forks  *forks.Tree
	Pool   *slashing.Pool
	Module *disputes.Module
}

// MakeEngine opens the store the preset asks for under dataDir and assembles
// the module on the preset's network rules.
func MakeEngine(dataDir string, preset PresetConfig) (*Engine, error) {
	rules, err := relay.RulesByName(preset.Network)
	if err != nil {
		return nil, err
	}
	return MakeEngineWithRules(dataDir, preset, rules)
}

// MakeEngineWithRules is MakeEngine with explicit rules.
func MakeEngineWithRules(dataDir string, preset PresetConfig, rules relay.Rules) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	db, err := openDB(dataDir, preset)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Rules: rules,
		DB:    db,
		Store: dstore.New(db),
		Forks: forks.NewTree(),
		Pool:  slashing.NewPool(),
	}
	e.Module, err = disputes.New(disputes.Deps{
		Store:    e.Store,
		Config:   rules,
		Forks:    e.Forks,
		Punisher: e.Pool,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"network": rules.Name,
		"db":      preset.DBBackend,
		"preset":  preset.Name,
	}).Info("Dispute engine assembled")
	return e, nil
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.DB.Close()
}

func openDB(dataDir string, preset PresetConfig) (kvdb.Store, error) {
	switch preset.DBBackend {
	case MemoryDB, "":
		return memorydb.New(), nil
	case LevelDB:
		path := filepath.Join(dataDir, "disputes")
		db, err := leveldb.New(path, preset.CacheMB, preset.Handles, nil, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open leveldb at %s", path)
		}
		return db, nil
	}
	return nil, errors.Errorf("unknown db backend %q (valid: %s, %s)", preset.DBBackend, MemoryDB, LevelDB)
}
