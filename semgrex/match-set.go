package semgrex

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// MatchSet remembers the signatures of match results.
type MatchSet interface {

	// TryAdd adds the signature of the given result if it is not already present.
	//
	// Returns true if the signature was added, false if an identical match was added before.
	// After one or more calls to TryAdd(), call Close() for cleanup.
	TryAdd(r *MatchResult) bool

	// Close removes every signature previously added.
	Close()
}

// NewMatchSet returns an empty MatchSet kept in an in-memory LSM store.
func NewMatchSet() MatchSet {
	return &lsmMatchSet{}
}

type lsmMatchSet struct {
	db *badger.DB
}

func (set *lsmMatchSet) autoOpen() {
	if set.db != nil {
		return
	}
	dbOpts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil).
		WithMetricsEnabled(false)

	var err error
	set.db, err = badger.Open(dbOpts)
	if err != nil {
		panic(errors.Wrap(err, "opening in-memory match set"))
	}
}

func (set *lsmMatchSet) TryAdd(r *MatchResult) bool {
	set.autoOpen()

	key := r.Signature()
	added := false
	err := set.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch err {
		case nil:
			return nil // already present
		case badger.ErrKeyNotFound:
			added = true
			return txn.Set(key, nil)
		default:
			return err
		}
	})
	if err != nil {
		panic(err)
	}
	return added
}

func (set *lsmMatchSet) Close() {
	if set.db != nil {
		set.db.Close()
		set.db = nil
	}
}
