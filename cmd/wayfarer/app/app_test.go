package app

import (
	"path/filepath"
	"testing"
)

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.config == nil {
		t.Fatal("New() left config nil")
	}
	if app.client != nil {
		t.Error("client constructed eagerly, want lazy")
	}
	if app.version != "1.0.0" || app.commit != "abc123" || app.date != "2024-01-01" {
		t.Errorf("build info = %s/%s/%s, want 1.0.0/abc123/2024-01-01",
			app.version, app.commit, app.date)
	}
}

// TestApp_Client_Singleton verifies that Client() returns the same instance.
func TestApp_Client_Singleton(t *testing.T) {
	app, err := New("dev", "none", "unknown")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	app.config.DatabasePath = filepath.Join(t.TempDir(), "wayfarer.db")
	app.config.Offline = true
	defer app.Shutdown()

	c1, err := app.Client()
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	c2, err := app.Client()
	if err != nil {
		t.Fatalf("Client() failed on second call: %v", err)
	}
	if c1 != c2 {
		t.Error("Client() returned different instances")
	}
}

// TestApp_Shutdown verifies that Shutdown releases the client.
func TestApp_Shutdown(t *testing.T) {
	app, err := New("dev", "none", "unknown")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	app.config.DatabasePath = filepath.Join(t.TempDir(), "wayfarer.db")
	app.config.Offline = true

	if _, err := app.Client(); err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	app.Shutdown()
	if app.client != nil {
		t.Error("Shutdown() did not clear the client")
	}

	// Shutdown with no client is a no-op.
	app.Shutdown()
}

// TestApp_RootCommand verifies the command tree is assembled.
func TestApp_RootCommand(t *testing.T) {
	app, err := New("1.2.3", "deadbeef", "2024-01-01")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	root := app.rootCommand()
	if root.Use != "wayfarer" {
		t.Errorf("root.Use = %s, want wayfarer", root.Use)
	}

	want := map[string]bool{
		"places":  false,
		"trips":   false,
		"queue":   false,
		"sync":    false,
		"observe": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}

	for _, flag := range []string{"verbose", "quiet", "output", "db", "server", "owner", "offline"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag %q not registered", flag)
		}
	}
}
