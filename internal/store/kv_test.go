package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestKV(t *testing.T) (*KV, Store) {
	t.Helper()
	s := Store{Dir: t.TempDir()}
	kv, err := s.OpenKV(context.Background())
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv, s
}

func TestKV_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	kv, _ := openTestKV(t)

	if _, ok, err := kv.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected missing key; ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "token", "def"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := kv.Get(ctx, "token")
	if err != nil || !ok || v != "def" {
		t.Fatalf("get: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := kv.Delete(ctx, "token", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "token"); ok {
		t.Fatalf("expected token deleted")
	}
}

func TestKV_EmptyKeyRejected(t *testing.T) {
	kv, _ := openTestKV(t)
	if err := kv.Set(context.Background(), "  ", "x"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestKV_JSONAndSetMany(t *testing.T) {
	ctx := context.Background()
	kv, _ := openTestKV(t)

	type user struct {
		ID   int    `json:"id"`
		Name string `json:"username"`
	}
	if err := kv.SetJSON(ctx, "user", user{ID: 3, Name: "ada"}); err != nil {
		t.Fatalf("set json: %v", err)
	}
	var got user
	ok, err := kv.GetJSON(ctx, "user", &got)
	if err != nil || !ok {
		t.Fatalf("get json: ok=%v err=%v", ok, err)
	}
	if got.ID != 3 || got.Name != "ada" {
		t.Fatalf("unexpected user: %#v", got)
	}

	if err := kv.SetMany(ctx, map[string]string{"system_name": "Plotline", "notice": "hi"}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	keys, err := kv.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"notice", "system_name", "user"}
	if len(keys) != len(want) {
		t.Fatalf("keys: got %v want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys: got %v want %v", keys, want)
		}
	}
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	kv, s := openTestKV(t)
	if err := kv.Set(ctx, "home_page_link", "https://example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = kv.Close()

	kv2, err := s.OpenKV(ctx)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv2.Close()
	v, ok, err := kv2.Get(ctx, "home_page_link")
	if err != nil || !ok || v != "https://example.com" {
		t.Fatalf("after reopen: v=%q ok=%v err=%v", v, ok, err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, sqliteFileName)); err != nil {
		t.Fatalf("expected sqlite file: %v", err)
	}
}

func TestWriteConfigFile_KeepsBackup(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	if err := s.WriteConfigFile([]byte("server:\n  url: a\n")); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := s.WriteConfigFile([]byte("server:\n  url: b\n")); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	bak, err := os.ReadFile(s.ConfigPath() + ".bak")
	if err != nil {
		t.Fatalf("read bak: %v", err)
	}
	if string(bak) != "server:\n  url: a\n" {
		t.Fatalf("unexpected backup: %q", string(bak))
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLOTLINE_CONFIG_DIR", dir)
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if got != dir {
		t.Fatalf("got %q want %q", got, dir)
	}
}
