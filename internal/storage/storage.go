// Package storage holds the single-blob backends behind the analysis
// history. Every backend replaces a key's value wholesale on Put: a reader
// sees either the previous blob or the new one, never a mix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver identifies a concrete backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
)

// ErrNotFound is returned by Get when nothing was ever stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a keyed blob store with whole-value replacement.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Driver() Driver
}

// ParseDriver validates a driver name from configuration.
func ParseDriver(name string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverS3:
		return d, nil
	case "":
		return DriverFile, nil
	default:
		return "", fmt.Errorf("unknown storage driver %q", name)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty key")
	}
	return nil
}
