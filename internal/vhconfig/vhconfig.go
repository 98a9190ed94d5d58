// Package vhconfig loads the small amount of process-wide configuration
// the core needs: the set of back-ends a CatalogContext may talk to,
// and the buffer-allocation defaults a BufferPool is created with.
//
// Grounded on original_source/src/io/config/cfgj_sp.c, which loads
// SearchPath configuration from a JSON document via a method-name
// table; this package keeps the "decode a narrow JSON document into
// typed Go values" idiom but drops the reflective method-table lookup
// (SearchPath construction here is done in Go by referencing concrete
// constructors, not resolved dynamically by a string method name).
package vhconfig

import (
	"encoding/json"
	"fmt"
	"io"
)

// BackEndConfig names one configured back-end connection.
type BackEndConfig struct {
	Name string `json:"name"`
	DSN  string `json:"dsn"`
}

// BufferConfig sets the defaults a BufferPool is created with.
type BufferConfig struct {
	// AllocFactor is the number of pages allocated at a time when a
	// HeapBuffer's free list runs dry (spec.md §4.3).
	AllocFactor uint16 `json:"alloc_factor"`
	// MaxBuffers bounds how many independent HeapBuffers a BufferPool
	// may create (spec.md §3: "one of a small fixed set (≤10)").
	MaxBuffers int `json:"max_buffers"`
}

// Config is the top-level configuration document.
type Config struct {
	BackEnds []BackEndConfig `json:"backends"`
	Buffers  BufferConfig    `json:"buffers"`
}

// DefaultConfig returns the configuration used when no document is
// supplied: up to 10 buffers, allocation factor of 8 pages.
func DefaultConfig() Config {
	return Config{
		Buffers: BufferConfig{AllocFactor: 8, MaxBuffers: 10},
	}
}

// Load decodes a Config from r, applying DefaultConfig for any field
// the document leaves at its zero value.
//
// This is the teacher's cluster.PostJSON/GetJSON decode idiom
// (json.NewDecoder(...).Decode(out)) adapted from an HTTP response
// body to an arbitrary io.Reader, since this layer has no network
// surface of its own.
func Load(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("vhconfig: decode: %w", err)
	}
	if cfg.Buffers.AllocFactor == 0 {
		cfg.Buffers.AllocFactor = 8
	}
	if cfg.Buffers.MaxBuffers == 0 {
		cfg.Buffers.MaxBuffers = 10
	}
	if cfg.Buffers.MaxBuffers > 10 {
		return Config{}, fmt.Errorf("vhconfig: max_buffers %d exceeds the fixed limit of 10", cfg.Buffers.MaxBuffers)
	}
	return cfg, nil
}
