// Package diag 提供一个托管的诊断调试服务器。
// 运行期状态（单例表、帧阶段注册、场景装载）只属于主线程，
// 处理器通过调度器把读取派发过去再应答，绝不跨线程直接翻看。
package diag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/engine/config"
	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/logging"
	"github.com/gocrud/engine/scenes"
	"github.com/gocrud/engine/sysinfo"
)

// mainThreadBudget 主线程应答预算，超出按 503 处理
const mainThreadBudget = 2 * time.Second

// Server 诊断服务器。作为托管组件以零值构造，依赖经字段注入到达。
type Server struct {
	Runtime    *core.Runtime        `di:""`
	Logger     logging.Logger       `di:""`
	Dispatcher dispatch.Dispatcher  `di:""`
	Options    *Options             `di:""`
	Config     config.Configuration `di:"optional"`
	Scenes     *scenes.Loader       `di:"optional"`

	log logging.Logger

	mu     sync.Mutex
	addr   string
	server *http.Server
}

// Address 返回实际监听地址，仅在启动完成后非空
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start 监听端口并阻塞服务，直到 context 取消或 Stop 被调用。
// 启动成功后把自身登记为运行时特性，测试据此发现实际端口。
func (s *Server) Start(ctx context.Context) error {
	s.log = s.Logger.WithCategory("Diag")

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.mountRoutes(engine)

	addr := fmt.Sprintf(":%d", s.Options.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("diag: failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{Handler: engine}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.server = server
	s.mu.Unlock()

	s.Runtime.Features.Set(s)
	s.log.Info("Diagnostics server started",
		logging.Field{Key: "address", Value: ln.Addr().String()})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), mainThreadBudget)
		defer cancel()
		server.Shutdown(sctx)
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭服务器
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}

	s.log.Info("Stopping diagnostics server")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("diag: failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) mountRoutes(engine *gin.Engine) {
	g := engine.Group("/diag")
	g.GET("/info", s.handleInfo)
	g.GET("/singletons", s.handleSingletons)
	g.GET("/tasks", s.handleTasks)
	g.GET("/config", s.handleConfig)
	g.GET("/scenes", s.handleScenes)
}

// replyFromMainThread 把读取派发到主线程执行，拿到结果后写应答。
// 帧泵没有在跑时请求会超时并返回 503。
func (s *Server) replyFromMainThread(c *gin.Context, read func() any) {
	done := make(chan any, 1)
	s.Dispatcher.InvokeAsync(func() {
		done <- read()
	})

	select {
	case payload := <-done:
		c.JSON(http.StatusOK, payload)
	case <-time.After(mainThreadBudget):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "main thread did not respond in time",
		})
	}
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"info":   sysinfo.Current(),
		"memory": sysinfo.SampleMemory(),
	})
}

func (s *Server) handleSingletons(c *gin.Context) {
	s.replyFromMainThread(c, func() any {
		return gin.H{"singletons": s.Runtime.Singletons.Snapshot()}
	})
}

func (s *Server) handleTasks(c *gin.Context) {
	s.replyFromMainThread(c, func() any {
		counts := s.Runtime.Tasks.Counts()
		phases := make(map[string]int, len(counts))
		for phase, n := range counts {
			phases[phase.String()] = n
		}
		return gin.H{"phases": phases}
	})
}

func (s *Server) handleConfig(c *gin.Context) {
	if s.Config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "configuration not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.Config.GetAll())
}

// operationView 进行中操作的应答形态
type operationView struct {
	ID    string `json:"id"`
	Scene string `json:"scene"`
	Kind  string `json:"kind"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleScenes(c *gin.Context) {
	if s.Scenes == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scene loader not enabled"})
		return
	}
	s.replyFromMainThread(c, func() any {
		ops := s.Scenes.Operations()
		views := make([]operationView, 0, len(ops))
		for _, op := range ops {
			view := operationView{
				ID:    op.ID.String(),
				Scene: op.Scene,
				Kind:  op.Kind.String(),
				State: op.State.String(),
			}
			if op.Err != nil {
				view.Error = op.Err.Error()
			}
			views = append(views, view)
		}
		return gin.H{
			"loaded":     s.Scenes.Loaded(),
			"operations": views,
		}
	})
}
