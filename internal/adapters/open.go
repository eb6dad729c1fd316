// Package adapters selects a result store from a DSN.
package adapters

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/solsim/internal/adapters/file"
	"github.com/aretw0/solsim/internal/adapters/memory"
	"github.com/aretw0/solsim/internal/adapters/redis"
	"github.com/aretw0/solsim/internal/adapters/sqlite"
	"github.com/aretw0/solsim/pkg/ports"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the store named by dsn:
//
//	memory:                  in-process, lost on exit
//	redis://host:port/db     Redis
//	sqlite:path, *.db        SQLite database file
//	file:dir, dir            directory of JSON files
//
// The returned closer releases connections held by the store.
func OpenStore(ctx context.Context, dsn string) (ports.ResultStore, io.Closer, error) {
	switch {
	case dsn == "memory:" || dsn == "memory://":
		return memory.New(), nopCloser{}, nil
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		store, err := redis.NewFromURL(dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case strings.HasPrefix(dsn, "sqlite:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case strings.HasPrefix(dsn, "file:"):
		return file.New(strings.TrimPrefix(strings.TrimPrefix(dsn, "file:"), "//")), nopCloser{}, nil
	case dsn == "":
		return nil, nil, fmt.Errorf("empty store dsn")
	default:
		return file.New(dsn), nopCloser{}, nil
	}
}
