// Package history keeps summaries of past runs in an embedded badger store
// so a run can be compared against the previous one with the same name.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/23skdu/longbow-bench/internal/export"
	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
)

const (
	lastPrefix = "last/"
	runPrefix  = "run/"
)

// SeriesSummary is one label of a stored run. Raw samples are not kept.
type SeriesSummary struct {
	Label   string  `json:"label"`
	Unit    string  `json:"unit"`
	Type    string  `json:"type"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	StdDev  float64 `json:"stddev"`
	Samples int     `json:"samples"`
}

type Entry struct {
	RunID     string          `json:"run_id"`
	Benchmark string          `json:"benchmark"`
	Name      string          `json:"name"`
	Api       string          `json:"api"`
	Result    string          `json:"result"`
	Timestamp time.Time       `json:"timestamp"`
	Series    []SeriesSummary `json:"series"`
}

// NewEntry summarizes rec.
func NewEntry(rec export.Record) Entry {
	e := Entry{
		RunID:     rec.RunID,
		Benchmark: rec.Benchmark,
		Name:      rec.Name,
		Api:       rec.Api,
		Result:    rec.Result.String(),
		Timestamp: rec.Timestamp,
	}
	for _, s := range rec.Series {
		sum := stats.Summarize(s.Values, rec.Warmup)
		e.Series = append(e.Series, SeriesSummary{
			Label:   s.Label,
			Unit:    s.Unit.String(),
			Type:    s.Type.String(),
			Mean:    sum.Mean,
			Median:  sum.Median,
			Min:     sum.Min,
			Max:     sum.Max,
			StdDev:  sum.StdDev,
			Samples: len(s.Values),
		})
	}
	return e
}

type Store struct {
	db *badger.DB
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create history directory %s: %w", dir, err)
	}
	return open(badger.DefaultOptions(dir).WithSyncWrites(true))
}

// OpenInMemory opens a store that is dropped on Close.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func lastKey(benchmark, name string) []byte {
	return []byte(lastPrefix + benchmark + "/" + name)
}

func runKey(runID, benchmark, name string) []byte {
	return []byte(runPrefix + runID + "/" + benchmark + "/" + name)
}

// Put stores rec under its run and, when it succeeded, as the latest
// result for its name. Failed runs never replace a baseline.
func (s *Store) Put(rec export.Record) error {
	entry := NewEntry(rec)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(rec.RunID, rec.Benchmark, rec.Name), data); err != nil {
			return err
		}
		if rec.Result != result.Success {
			return nil
		}
		return txn.Set(lastKey(rec.Benchmark, rec.Name), data)
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", rec.Name, err)
	}
	return nil
}

// Last returns the latest successful entry for name.
func (s *Store) Last(benchmark, name string) (Entry, bool, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastKey(benchmark, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load %s: %w", name, err)
	}
	return entry, true, nil
}

// Run returns every entry stored under runID in key order.
func (s *Store) Run(runID string) ([]Entry, error) {
	var entries []Entry
	prefix := []byte(runPrefix + runID + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	return entries, nil
}

// Delta compares the mean of one label between two runs.
type Delta struct {
	Label    string
	Unit     string
	Baseline float64
	Current  float64
	// Ratio is Current/Baseline.
	Ratio float64
}

// Compare matches labels present in both entries. Labels with a zero
// baseline mean are skipped.
func Compare(baseline, current Entry) []Delta {
	base := make(map[string]SeriesSummary, len(baseline.Series))
	for _, s := range baseline.Series {
		base[s.Label] = s
	}
	var deltas []Delta
	for _, cur := range current.Series {
		b, ok := base[cur.Label]
		if !ok || b.Unit != cur.Unit || b.Mean == 0 {
			continue
		}
		deltas = append(deltas, Delta{
			Label:    cur.Label,
			Unit:     cur.Unit,
			Baseline: b.Mean,
			Current:  cur.Mean,
			Ratio:    cur.Mean / b.Mean,
		})
	}
	return deltas
}

type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Log.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Log.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
