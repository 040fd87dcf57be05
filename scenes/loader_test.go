package scenes_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/logging"
	"github.com/gocrud/engine/scenes"
	"github.com/gocrud/engine/tasks"
)

func newTestLoader(t *testing.T, dir string, timeout time.Duration) (*scenes.Loader, *dispatch.MainThread, *tasks.Manager) {
	t.Helper()
	logger := logging.NewLogger("ScenesTest")
	dispatcher := dispatch.NewMainThread(logger)
	manager := tasks.NewManager()
	loader := scenes.NewLoader(scenes.Options{Dir: dir, Timeout: timeout}, logger, dispatcher, manager)
	return loader, dispatcher, manager
}

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// pump 模拟帧循环：排空调度队列并驱动超时检查，直到条件满足
func pump(loader *scenes.Loader, dispatcher *dispatch.MainThread, cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		dispatcher.ExecutePending()
		loader.Update(16 * time.Millisecond)
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestLoadCompletesOnMainThread(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "arena", "name: arena\nassets:\n  - textures/floor.png\n")
	loader, dispatcher, _ := newTestLoader(t, dir, time.Second)

	op, err := loader.Load("arena")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if op.State != scenes.StateLoading {
		t.Fatalf("expected Loading state, got %v", op.State)
	}
	if op.ID == uuid.Nil {
		t.Error("operation must carry an ID")
	}

	var completed *scenes.Operation
	op.OnComplete = func(o *scenes.Operation) { completed = o }

	if !pump(loader, dispatcher, func() bool { return completed != nil }) {
		t.Fatal("operation never completed")
	}

	if op.State != scenes.StateDone {
		t.Fatalf("expected Done, got %v (err %v)", op.State, op.Err)
	}
	scene, ok := loader.Scene("arena")
	if !ok {
		t.Fatal("scene not registered after load")
	}
	if len(scene.Assets) != 1 || scene.Assets[0] != "textures/floor.png" {
		t.Errorf("manifest not parsed: %+v", scene)
	}
	if got := loader.Loaded(); len(got) != 1 || got[0] != "arena" {
		t.Errorf("Loaded() wrong: %v", got)
	}
}

func TestLoadMissingManifestFails(t *testing.T) {
	loader, dispatcher, _ := newTestLoader(t, t.TempDir(), time.Second)

	op, err := loader.Load("ghost")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !pump(loader, dispatcher, op.Finished) {
		t.Fatal("operation never completed")
	}

	if op.State != scenes.StateFailed || op.Err == nil {
		t.Fatalf("expected Failed with error, got %v (err %v)", op.State, op.Err)
	}
	if _, ok := loader.Scene("ghost"); ok {
		t.Error("failed scene must not be registered")
	}
}

func TestLoadBadManifestFails(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "broken", "name: [unterminated\n")
	loader, dispatcher, _ := newTestLoader(t, dir, time.Second)

	op, _ := loader.Load("broken")
	if !pump(loader, dispatcher, op.Finished) {
		t.Fatal("operation never completed")
	}
	if op.State != scenes.StateFailed {
		t.Fatalf("expected Failed, got %v", op.State)
	}
}

func TestDuplicateLoadRejected(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "arena", "name: arena\n")
	loader, dispatcher, _ := newTestLoader(t, dir, time.Second)

	op, _ := loader.Load("arena")

	// 进行中：重复请求立即被拒
	if _, err := loader.Load("arena"); err == nil {
		t.Fatal("expected in-flight rejection")
	} else {
		var inFlight *scenes.OperationInFlightError
		if !errors.As(err, &inFlight) {
			t.Fatalf("expected OperationInFlightError, got %T", err)
		}
	}

	if !pump(loader, dispatcher, op.Finished) {
		t.Fatal("operation never completed")
	}

	// 已装载：重复请求同样被拒
	if _, err := loader.Load("arena"); err == nil {
		t.Fatal("expected already-loaded rejection")
	} else {
		var already *scenes.AlreadyLoadedError
		if !errors.As(err, &already) {
			t.Fatalf("expected AlreadyLoadedError, got %T", err)
		}
	}
}

func TestUnloadRemovesScene(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "arena", "name: arena\n")
	loader, dispatcher, _ := newTestLoader(t, dir, time.Second)

	load, _ := loader.Load("arena")
	if !pump(loader, dispatcher, load.Finished) {
		t.Fatal("load never completed")
	}

	unload, err := loader.Unload("arena")
	if err != nil {
		t.Fatalf("Unload failed: %v", err)
	}
	if unload.Kind != scenes.KindUnload {
		t.Errorf("expected Unload kind, got %v", unload.Kind)
	}

	if !pump(loader, dispatcher, unload.Finished) {
		t.Fatal("unload never completed")
	}
	if unload.State != scenes.StateDone {
		t.Fatalf("expected Done, got %v (err %v)", unload.State, unload.Err)
	}
	if got := loader.Loaded(); len(got) != 0 {
		t.Errorf("scene still registered after unload: %v", got)
	}
}

func TestUnloadUnknownSceneRejected(t *testing.T) {
	loader, _, _ := newTestLoader(t, t.TempDir(), time.Second)

	_, err := loader.Unload("missing")
	var notLoaded *scenes.NotLoadedError
	if !errors.As(err, &notLoaded) {
		t.Fatalf("expected NotLoadedError, got %v", err)
	}
}

func TestOperationTimeout(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "arena", "name: arena\n")
	loader, dispatcher, _ := newTestLoader(t, dir, 10*time.Millisecond)

	op, _ := loader.Load("arena")
	callbacks := 0
	op.OnComplete = func(*scenes.Operation) { callbacks++ }

	// 不排空调度队列，只推进帧泵：完成结果无法生效，超时先到
	time.Sleep(30 * time.Millisecond)
	loader.Update(16 * time.Millisecond)

	if op.State != scenes.StateFailed {
		t.Fatalf("expected Failed after timeout, got %v", op.State)
	}
	var timeout *scenes.TimeoutError
	if !errors.As(op.Err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", op.Err)
	}
	if callbacks != 1 {
		t.Fatalf("expected exactly one callback, got %d", callbacks)
	}

	// 迟到的完成结果必须作废：状态不变、回调不重复、场景不注册
	dispatcher.ExecutePending()
	if op.State != scenes.StateFailed || callbacks != 1 {
		t.Errorf("late completion must be discarded: state %v, callbacks %d", op.State, callbacks)
	}
	if _, ok := loader.Scene("arena"); ok {
		t.Error("timed-out scene must not be registered")
	}
}

func TestStartupRegistersWithFrameLoop(t *testing.T) {
	loader, _, manager := newTestLoader(t, t.TempDir(), time.Second)

	if err := loader.Startup(); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	if got := manager.Counts()[tasks.PhaseUpdate]; got != 1 {
		t.Fatalf("expected 1 update participant, got %d", got)
	}

	if err := loader.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := manager.Counts()[tasks.PhaseUpdate]; got != 0 {
		t.Fatalf("expected 0 update participants after shutdown, got %d", got)
	}
}

func TestShutdownAbandonsInFlight(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "arena", "name: arena\n")
	loader, _, _ := newTestLoader(t, dir, time.Second)

	op, _ := loader.Load("arena")
	if err := loader.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if op.State != scenes.StateFailed || !errors.Is(op.Err, scenes.ErrLoaderClosed) {
		t.Fatalf("expected abandoned operation, got %v (err %v)", op.State, op.Err)
	}
}
