package main

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"

	appmigrations "github.com/wolfman30/gemini-chat/migrations"
)

type stubMigrator struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	forced     int
}

func (s *stubMigrator) Up() error   { return s.upErr }
func (s *stubMigrator) Down() error { return s.downErr }
func (s *stubMigrator) Force(v int) error {
	s.forced = v
	return nil
}
func (s *stubMigrator) Version() (uint, bool, error) { return s.version, s.dirty, s.versionErr }

func TestRunUpTreatsNoChangeAsSuccess(t *testing.T) {
	out, err := run(&stubMigrator{upErr: migrate.ErrNoChange}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "migrations complete" {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := run(&stubMigrator{upErr: errors.New("boom")}, []string{"up"}); err == nil {
		t.Fatalf("expected up error")
	}
}

func TestRunForce(t *testing.T) {
	m := &stubMigrator{}
	out, err := run(m, []string{"force", "3"})
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if m.forced != 3 || out != "forced version to 3" {
		t.Fatalf("unexpected force result %d %q", m.forced, out)
	}

	if _, err := run(m, []string{"force"}); err == nil {
		t.Fatalf("expected missing version error")
	}
	if _, err := run(m, []string{"force", "x"}); err == nil {
		t.Fatalf("expected invalid version error")
	}
}

func TestRunVersionAndDown(t *testing.T) {
	out, err := run(&stubMigrator{versionErr: migrate.ErrNilVersion}, []string{"version"})
	if err != nil || out != "no migrations applied" {
		t.Fatalf("unexpected version result %q %v", out, err)
	}
	out, err = run(&stubMigrator{version: 1}, []string{"version"})
	if err != nil || out != "version 1 (dirty=false)" {
		t.Fatalf("unexpected version result %q %v", out, err)
	}
	if _, err := run(&stubMigrator{downErr: migrate.ErrNoChange}, []string{"down"}); err != nil {
		t.Fatalf("down: %v", err)
	}
	if _, err := run(&stubMigrator{}, []string{"sideways"}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestEmbeddedMigrationsPaired(t *testing.T) {
	entries, err := fs.ReadDir(appmigrations.FS, ".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	if up == 0 || up != down {
		t.Fatalf("expected paired migrations, got %d up and %d down", up, down)
	}
}
