package run

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContextLifecycle(t *testing.T) {
	c, err := New(t.TempDir(), "test-run")
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if c.ID() != "test-run" {
		t.Fatalf("unexpected id: %q", c.ID())
	}

	if err := c.Disable(); err == nil {
		t.Fatal("expected not-enabled error")
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := c.Enable(); err == nil {
		t.Fatal("expected already-enabled error")
	}

	c.Printf("molecules evaluated: %d", 42)

	if err := c.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := c.Disable(); err == nil {
		t.Fatal("expected already-disabled error")
	}
	if err := c.Enable(); err == nil {
		t.Fatal("expected re-enable error")
	}

	data, err := os.ReadFile(filepath.Join(c.Dir(), "run.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "molecules evaluated: 42") {
		t.Fatalf("log line missing: %q", string(data))
	}
	if !strings.Contains(string(data), "[molgen]") {
		t.Fatalf("log prefix missing: %q", string(data))
	}
}

func TestContextGeneratedID(t *testing.T) {
	c, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if c.ID() == "" {
		t.Fatal("expected generated id")
	}
	if _, err := New("", "x"); err == nil {
		t.Fatal("expected base directory error")
	}
}

func TestProgressClamping(t *testing.T) {
	c, err := New(t.TempDir(), "progress")
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	defer c.Disable()

	p := NewProgress(c, "episodes", 10)
	p.Add(4)
	p.Add(20)
	if p.Current() != 10 {
		t.Fatalf("progress not clamped: got=%d want=10", p.Current())
	}

	p.SetTotal(5)
	if p.Current() != 5 {
		t.Fatalf("progress not reclamped after total shrink: got=%d want=5", p.Current())
	}
}
