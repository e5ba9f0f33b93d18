// Package run manages per-run state: an output directory, a structured
// line logger with an explicit enable/disable lifecycle and progress
// meters for long evaluations.
package run

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Context is the per-run logging and artifact root. It must be enabled
// before use and disabled exactly once afterwards; both transitions error
// when repeated.
type Context struct {
	mu      sync.Mutex
	id      string
	dir     string
	logger  *log.Logger
	file    *os.File
	enabled bool
	closed  bool
}

// New builds a run context rooted at baseDir/id. An empty id gets a
// generated one.
func New(baseDir, id string) (*Context, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Context{id: id, dir: filepath.Join(baseDir, id)}, nil
}

func (c *Context) ID() string  { return c.id }
func (c *Context) Dir() string { return c.dir }

// Enable creates the run directory and opens the run log.
func (c *Context) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return fmt.Errorf("run context is already enabled")
	}
	if c.closed {
		return fmt.Errorf("run context is already disabled")
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	file, err := os.Create(filepath.Join(c.dir, "run.log"))
	if err != nil {
		return fmt.Errorf("create run log: %w", err)
	}
	c.file = file
	c.logger = log.New(io.MultiWriter(os.Stderr, file), "[molgen] ", log.LstdFlags|log.Lmsgprefix)
	c.enabled = true
	return nil
}

// Printf writes one log line. Calls before Enable or after Disable are
// dropped.
func (c *Context) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.closed {
		return
	}
	c.logger.Printf(format, args...)
}

// Disable flushes and closes the run log. The context cannot be enabled
// again.
func (c *Context) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return fmt.Errorf("run context is not enabled")
	}
	if c.closed {
		return fmt.Errorf("run context is already disabled")
	}

	c.closed = true
	c.enabled = false
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}
	return nil
}

// ArtifactPath returns the path of a named artifact inside the run
// directory.
func (c *Context) ArtifactPath(name string) string {
	return filepath.Join(c.dir, name)
}
