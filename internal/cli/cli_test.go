package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("GANBARI_HOME", home)
	t.Setenv("GANBARI_API_PORT", "")
	t.Setenv("GANBARI_REDIS_ADDR", "")
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestConfigInitAndPath(t *testing.T) {
	home := setHome(t)

	out := mustRun(t, "config", "path")
	if strings.TrimSpace(out) != filepath.Join(home, "config.toml") {
		t.Errorf("path = %q", out)
	}

	mustRun(t, "config", "init")
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config.toml not written: %v", err)
	}
	if _, err := run(t, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	mustRun(t, "config", "init", "--force")

	out = mustRun(t, "config", "show")
	if !strings.Contains(out, "[api]") {
		t.Errorf("config show = %q", out)
	}
}

func TestWorkflow(t *testing.T) {
	setHome(t)

	var child domain.Child
	if err := json.Unmarshal([]byte(mustRun(t, "child", "add", "ゆい", "4", "--json")), &child); err != nil {
		t.Fatalf("decode child: %v", err)
	}
	if child.ID == 0 || child.Theme != "pink" {
		t.Fatalf("child = %+v", child)
	}

	out := mustRun(t, "seed")
	if !strings.Contains(out, "Added 18 activities") {
		t.Errorf("seed = %q", out)
	}
	if out := mustRun(t, "seed"); !strings.Contains(out, "left unchanged") {
		t.Errorf("reseed = %q", out)
	}

	var acts []domain.Activity
	if err := json.Unmarshal([]byte(mustRun(t, "activity", "list", "--json", "--category", "うんどう")), &acts); err != nil {
		t.Fatalf("decode activities: %v", err)
	}
	if len(acts) != 3 {
		t.Fatalf("physical activities = %d, want 3", len(acts))
	}

	cid := itoa(child.ID)
	aid := itoa(acts[0].ID)
	out = mustRun(t, "record", cid, aid)
	if !strings.Contains(out, "5 points") {
		t.Errorf("record = %q", out)
	}
	if _, err := run(t, "record", cid, aid); !errors.Is(err, domain.ErrAlreadyRecorded) {
		t.Errorf("second record error = %v, want ErrAlreadyRecorded", err)
	}

	out = mustRun(t, "points", "balance", cid)
	if !strings.Contains(out, "Balance: 5 points") {
		t.Errorf("balance = %q", out)
	}

	if out := mustRun(t, "bonus", "claim", cid); !strings.Contains(out, "ポイントゲット") {
		t.Errorf("claim = %q", out)
	}
	if _, err := run(t, "bonus", "claim", cid); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("second claim error = %v", err)
	}

	if out := mustRun(t, "logs", cid); !strings.Contains(out, "1 activities") {
		t.Errorf("logs = %q", out)
	}
	if out := mustRun(t, "points", "history", cid); !strings.Contains(out, "activity") {
		t.Errorf("history = %q", out)
	}
	if out := mustRun(t, "status", cid); !strings.Contains(out, "Lv.1") {
		t.Errorf("status = %q", out)
	}

	if out := mustRun(t, "evaluate"); !strings.Contains(out, "1 evaluated") {
		t.Errorf("evaluate = %q", out)
	}
	if out := mustRun(t, "evaluate"); !strings.Contains(out, "1 already done") {
		t.Errorf("re-evaluate = %q", out)
	}
	if out := mustRun(t, "decay"); !strings.Contains(out, "Decay for") {
		t.Errorf("decay = %q", out)
	}

	if _, err := run(t, "points", "convert", cid, "250"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("convert 250 error = %v", err)
	}
}

func TestActivityAddAndHide(t *testing.T) {
	setHome(t)

	var a domain.Activity
	out := mustRun(t, "activity", "add", "--name", "なわとび", "--category", "physical", "--points", "7", "--json")
	if err := json.Unmarshal([]byte(out), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.BasePoints != 7 || a.Icon != "⭐" {
		t.Errorf("activity = %+v", a)
	}

	mustRun(t, "activity", "hide", itoa(a.ID))
	if out := mustRun(t, "activity", "list"); strings.Contains(out, "なわとび") {
		t.Error("hidden activity listed")
	}
	if out := mustRun(t, "activity", "list", "--all"); !strings.Contains(out, "なわとび") {
		t.Error("--all should include hidden")
	}

	if _, err := run(t, "activity", "add", "--name", "x", "--category", "nope"); !errors.Is(err, domain.ErrInvalidCategory) {
		t.Errorf("bad category error = %v", err)
	}
}

func TestBadArgs(t *testing.T) {
	setHome(t)
	if _, err := run(t, "record", "one", "2"); err == nil {
		t.Error("non-numeric id should fail")
	}
	if _, err := run(t, "status", "99"); !errors.Is(err, domain.ErrChildNotFound) {
		t.Errorf("unknown child error = %v", err)
	}
	if _, err := run(t, "logs", "1", "--period", "decade"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad period error = %v", err)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
