package diag_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"testing"
	"time"

	"github.com/gocrud/engine/config"
	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/diag"
	"github.com/gocrud/engine/scenes"
)

// startDiagRuntime 起一个带诊断服务器（随机端口）的运行时并等待地址可见
func startDiagRuntime(t *testing.T, opts ...core.Option) (*core.Runtime, string) {
	t.Helper()

	rt := core.NewRuntime()
	all := append(opts, diag.New(diag.WithPort(0)))
	if err := rt.Apply(all...); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := rt.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := rt.Startup(); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	t.Cleanup(rt.Teardown)

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv := core.GetFeature[*diag.Server](rt); srv != nil {
			if addr = srv.Address(); addr != "" {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("Diagnostics server address not discovered")
	}
	return rt, addr
}

// fetchWhilePumping 发起请求并同时驱动帧循环，
// 供需要主线程应答的端点使用
func fetchWhilePumping(t *testing.T, rt *core.Runtime, url string) (int, []byte) {
	t.Helper()

	type result struct {
		code int
		body []byte
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := http.Get(url)
		if err != nil {
			resCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		resCh <- result{code: resp.StatusCode, body: body, err: err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		rt.Tick(16 * time.Millisecond)
		select {
		case res := <-resCh:
			if res.err != nil {
				t.Fatalf("GET %s failed: %v", url, res.err)
			}
			return res.code, res.body
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s did not complete in time", url)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInfoEndpoint(t *testing.T) {
	_, addr := startDiagRuntime(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/diag/info", addr))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Info struct {
			OS  string `json:"os"`
			PID int    `json:"pid"`
		} `json:"info"`
		Memory struct {
			Goroutines int `json:"goroutines"`
		} `json:"memory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if payload.Info.OS != runtime.GOOS {
		t.Errorf("Expected os %q, got %q", runtime.GOOS, payload.Info.OS)
	}
	if payload.Memory.Goroutines <= 0 {
		t.Error("Expected a live goroutine count")
	}
}

func TestSingletonsEndpointReportsHostedServer(t *testing.T) {
	rt, addr := startDiagRuntime(t)

	code, body := fetchWhilePumping(t, rt, fmt.Sprintf("http://%s/diag/singletons", addr))
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}

	var payload struct {
		Singletons []struct {
			Abstract string `json:"abstract"`
			Strategy string `json:"strategy"`
			State    string `json:"state"`
		} `json:"singletons"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	found := false
	for _, s := range payload.Singletons {
		if s.Abstract == "*diag.Server" {
			found = true
			if s.Strategy != "Hosted" {
				t.Errorf("Expected Hosted strategy, got %s", s.Strategy)
			}
			if s.State != "Started" {
				t.Errorf("Expected Started state, got %s", s.State)
			}
		}
	}
	if !found {
		t.Errorf("Server not present in snapshot: %+v", payload.Singletons)
	}
}

func TestTasksEndpointListsPhases(t *testing.T) {
	rt, addr := startDiagRuntime(t, scenes.New(scenes.Options{Dir: t.TempDir()}))

	code, body := fetchWhilePumping(t, rt, fmt.Sprintf("http://%s/diag/tasks", addr))
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}

	var payload struct {
		Phases map[string]int `json:"phases"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	// 场景装载器把自己挂进 Update 阶段
	if payload.Phases["Update"] != 1 {
		t.Errorf("Expected one Update participant, got %+v", payload.Phases)
	}
}

func TestConfigEndpoint(t *testing.T) {
	_, addr := startDiagRuntime(t, config.New(func(b *config.ConfigurationBuilder) {
		b.AddInMemory(map[string]any{
			"app": map[string]any{"name": "diagtest"},
		})
	}))

	resp, err := http.Get(fmt.Sprintf("http://%s/diag/config", addr))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		App struct {
			Name string `json:"name"`
		} `json:"app"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if payload.App.Name != "diagtest" {
		t.Errorf("Expected configured name, got %+v", payload)
	}
}

func TestConfigEndpointWithoutConfiguration(t *testing.T) {
	_, addr := startDiagRuntime(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/diag/config", addr))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without configuration, got %d", resp.StatusCode)
	}
}

func TestScenesEndpoint(t *testing.T) {
	rt, addr := startDiagRuntime(t, scenes.New(scenes.Options{Dir: t.TempDir()}))

	code, body := fetchWhilePumping(t, rt, fmt.Sprintf("http://%s/diag/scenes", addr))
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}

	var payload struct {
		Loaded     []string `json:"loaded"`
		Operations []any    `json:"operations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(payload.Loaded) != 0 || len(payload.Operations) != 0 {
		t.Errorf("Expected an idle loader, got %s", body)
	}
}

func TestScenesEndpointWithoutLoader(t *testing.T) {
	_, addr := startDiagRuntime(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/diag/scenes", addr))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without scene loader, got %d", resp.StatusCode)
	}
}

func TestMainThreadTimeoutAnswers503(t *testing.T) {
	_, addr := startDiagRuntime(t)

	// 不驱动帧循环，主线程读取无法完成
	resp, err := http.Get(fmt.Sprintf("http://%s/diag/tasks", addr))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the frame pump is idle, got %d", resp.StatusCode)
	}
}
