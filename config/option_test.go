package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/di"
)

func TestNewBindsConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	if err := os.WriteFile(path, []byte(`{"server":{"port":8080}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := core.NewRuntime()
	err := rt.Apply(New(func(b *ConfigurationBuilder) {
		b.AddJsonFile(path)
	}))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	cfg, err := di.Resolve[Configuration](rt.Factory)
	if err != nil {
		t.Fatalf("Configuration not bound: %v", err)
	}
	if port, _ := cfg.GetInt("server:port"); port != 8080 {
		t.Errorf("Expected 8080, got %d", port)
	}

	// 同一实例也作为特性可被发现
	if feature := core.GetFeature[*Reloadable](rt); feature == nil {
		t.Error("Reloadable not registered as runtime feature")
	}
}

func TestNewFailsOnBadSource(t *testing.T) {
	rt := core.NewRuntime()
	err := rt.Apply(New(func(b *ConfigurationBuilder) {
		b.AddJsonFile(filepath.Join(t.TempDir(), "missing.json"))
	}))
	if err == nil {
		t.Fatal("Expected Apply to fail for missing required file")
	}
}

func TestBindSectionOption(t *testing.T) {
	type ServerSettings struct {
		Port int `json:"port"`
	}

	rt := core.NewRuntime()
	err := rt.Apply(
		New(func(b *ConfigurationBuilder) {
			b.AddInMemory(map[string]any{"server": map[string]any{"port": 9000}})
		}),
		Bind[ServerSettings]("server"),
	)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	settings, err := di.Resolve[*ServerSettings](rt.Factory)
	if err != nil {
		t.Fatalf("Settings not bound: %v", err)
	}
	if settings.Port != 9000 {
		t.Errorf("Expected 9000, got %d", settings.Port)
	}
}

func TestBindOptionRequiresNew(t *testing.T) {
	type ServerSettings struct {
		Port int `json:"port"`
	}

	rt := core.NewRuntime()
	if err := rt.Apply(Bind[ServerSettings]("server")); err == nil {
		t.Fatal("Expected Bind to fail without New")
	}
}

func TestWatchReloadsOnMainThread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	if err := os.WriteFile(path, []byte(`{"limit":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := core.NewRuntime()
	err := rt.Apply(New(func(b *ConfigurationBuilder) {
		b.AddJsonFile(path)
	}, WithWatch(), WithDebounce(20*time.Millisecond)))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	defer rt.Teardown()

	cfg, err := di.Resolve[Configuration](rt.Factory)
	if err != nil {
		t.Fatalf("Configuration not bound: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"limit":2}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// 重载经主线程派发，需要驱动帧循环让队列执行
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rt.Tick(16 * time.Millisecond)
		if n, _ := cfg.GetInt("limit"); n == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Configuration was not reloaded")
}
