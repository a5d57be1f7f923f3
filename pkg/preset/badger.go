package preset

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "preset:"

// Badger is a Store backed by BadgerDB v4. Values are msgpack-encoded.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("preset: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log: log.With("component", "badger")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, now: time.Now}, nil
}

func presetKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func (b *Badger) Get(_ context.Context, id string) (*Preset, error) {
	var p *Preset
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func getTxn(txn *badger.Txn, id string) (*Preset, error) {
	item, err := txn.Get(presetKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var p Preset
	if err := msgpack.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("preset: decode %s: %w", id, err)
	}
	return &p, nil
}

func (b *Badger) Put(_ context.Context, p *Preset) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var created time.Time
		if p.ID != "" {
			old, err := getTxn(txn, p.ID)
			switch {
			case err == nil:
				created = old.CreatedAt
			case !errors.Is(err, ErrNotFound):
				return err
			}
		}
		if err := stamp(p, created, b.now()); err != nil {
			return err
		}
		data, err := msgpack.Marshal(p)
		if err != nil {
			return err
		}
		return txn.Set(presetKey(p.ID), data)
	})
}

func (b *Badger) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(presetKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(presetKey(id))
	})
}

func (b *Badger) List(_ context.Context) iter.Seq2[*Preset, error] {
	prefix := []byte(keyPrefix)
	return func(yield func(*Preset, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err == nil {
					var p Preset
					if err = msgpack.Unmarshal(val, &p); err == nil {
						if !yield(&p, nil) {
							return nil
						}
						continue
					}
					err = fmt.Errorf("preset: decode %s: %w", item.Key(), err)
				}
				if !yield(nil, err) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger forwards badger warnings and errors to slog and drops the
// info and debug chatter.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
