package evaluate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/claimspec/internal/frame"
)

// ErrDatasetMissing is returned when a dataset has no table for an
// experiment.
var ErrDatasetMissing = errors.New("dataset table not found")

// DatasetSpec names a dataset and where its experiment tables live: a
// directory of <experiment>.csv files, or a SQLite database (.db, .sqlite)
// holding one table per experiment.
type DatasetSpec struct {
	Name string
	Path string
}

// ParseDatasetSpec parses the "name=path" command-line form.
func ParseDatasetSpec(s string) (DatasetSpec, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok || name == "" || path == "" {
		return DatasetSpec{}, fmt.Errorf("dataset %q: want name=path", s)
	}
	return DatasetSpec{Name: name, Path: path}, nil
}

// SQLite reports whether the dataset is a SQLite database.
func (d DatasetSpec) SQLite() bool {
	switch strings.ToLower(filepath.Ext(d.Path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Source returns where the table for experiment exp is read from.
func (d DatasetSpec) Source(exp string) string {
	if d.SQLite() {
		return d.Path + "#" + exp
	}
	return filepath.Join(d.Path, exp+".csv")
}

func (d DatasetSpec) load(ctx context.Context, exp string) (*frame.Frame, error) {
	if !d.SQLite() {
		f, err := frame.ReadCSVFile(d.Source(exp))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, d.Source(exp))
		}
		return f, err
	}

	db, err := sql.Open("sqlite3", "file:"+d.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", d.Path, err)
	}
	defer db.Close()

	var n int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", exp).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", d.Path, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, d.Source(exp))
	}
	return frame.LoadSQLite(ctx, db, exp)
}

// FrameCache memoizes loaded experiment tables by source. Frames are
// immutable, so cached frames are shared between claims and runs.
type FrameCache struct {
	cache *gocache.Cache
}

// NewFrameCache creates a cache whose entries expire after ttl. A ttl of
// zero keeps entries until Flush.
func NewFrameCache(ttl time.Duration) *FrameCache {
	if ttl <= 0 {
		return &FrameCache{cache: gocache.New(gocache.NoExpiration, 0)}
	}
	return &FrameCache{cache: gocache.New(ttl, 2*ttl)}
}

// Load returns the table for experiment exp of dataset d, reading it on a
// miss.
func (c *FrameCache) Load(ctx context.Context, d DatasetSpec, exp string) (*frame.Frame, error) {
	key := d.Source(exp)
	if v, found := c.cache.Get(key); found {
		return v.(*frame.Frame), nil
	}
	f, err := d.load(ctx, exp)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: experiment %s: %w", d.Name, exp, err)
	}
	c.cache.SetDefault(key, f)
	return f, nil
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int { return c.cache.ItemCount() }

// Flush drops every cached frame.
func (c *FrameCache) Flush() { c.cache.Flush() }
