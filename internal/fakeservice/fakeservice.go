// Package fakeservice is an in-memory stand-in for the download-task service,
// used by tests. It applies the same legality rules as the real service and
// answers errors with {"detail": "..."} bodies.
package fakeservice

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"

	"taskdeck-cli/internal/model"

	"github.com/gin-gonic/gin"
)

var storeURLRe = regexp.MustCompile(`/([a-z]{2})/(artist|album|playlist|song|music-video|post)/([^/]*)(?:/([^/?]*))?(?:\?i=)?([0-9a-z]*)?`)

var statusText = map[model.Status]string{
	model.StatusPending:     "等待中",
	model.StatusDownloading: "下载中",
	model.StatusCompleted:   "完成",
	model.StatusError:       "错误",
	model.StatusCancelled:   "已取消",
}

type Service struct {
	mu sync.Mutex

	tasks      []model.Task
	currentLog string
	blobs      map[string]string

	calls map[string]int
	// failNext maps "METHOD path" to a pending injected failure status.
	failNext map[string]int
	// listGate, when set, blocks GET /tasks until a value is received.
	listGate chan struct{}

	engine *gin.Engine
}

func New() *Service {
	gin.SetMode(gin.TestMode)
	s := &Service{
		blobs:    map[string]string{},
		calls:    map[string]int{},
		failNext: map[string]int{},
	}
	r := gin.New()
	api := r.Group("/api")
	api.Use(s.count, s.injectFailure)
	api.GET("/tasks", s.listTasks)
	api.POST("/tasks", s.createTask)
	api.POST("/tasks/reset-all", s.resetAll)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.POST("/tasks/:id/cancel", s.cancelTask)
	api.POST("/tasks/:id/restart", s.restartTask(false))
	api.POST("/tasks/:id/restart-overwrite", s.restartTask(true))
	api.PATCH("/tasks/:id/language", s.updateLanguage)
	api.GET("/settings/:name", s.blobStatus)
	api.GET("/settings/:name/content", s.blobContent)
	api.POST("/settings/:name", s.saveBlob)
	s.engine = r
	return s
}

func (s *Service) Handler() http.Handler { return s.engine }

// Start serves the fake on a loopback listener and returns the API base URL.
func (s *Service) Start() (*httptest.Server, string) {
	srv := httptest.NewServer(s.engine)
	return srv, srv.URL + "/api"
}

// Seed replaces the registry.
func (s *Service) Seed(tasks ...model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	for _, t := range tasks {
		if t.StatusText == "" {
			t.StatusText = statusText[t.Status]
		}
		s.tasks = append(s.tasks, t)
	}
}

func (s *Service) SetLog(l string) {
	s.mu.Lock()
	s.currentLog = l
	s.mu.Unlock()
}

func (s *Service) SetStatus(id string, st model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.find(id); t != nil {
		t.Status = st
		t.StatusText = statusText[st]
	}
}

func (s *Service) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.find(id); t != nil {
		return *t, true
	}
	return model.Task{}, false
}

// Calls returns how many requests hit "METHOD /api/path" (route pattern, e.g. "POST /api/tasks/:id/restart").
func (s *Service) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// FailNext makes the next request on route answer with status and a detail.
func (s *Service) FailNext(route string, status int) {
	s.mu.Lock()
	s.failNext[route] = status
	s.mu.Unlock()
}

// GateList makes GET /tasks block until Release is called once per blocked request.
func (s *Service) GateList() {
	s.mu.Lock()
	s.listGate = make(chan struct{})
	s.mu.Unlock()
}

func (s *Service) Release() {
	s.mu.Lock()
	g := s.listGate
	s.mu.Unlock()
	if g != nil {
		g <- struct{}{}
	}
}

func (s *Service) Ungate() {
	s.mu.Lock()
	g := s.listGate
	s.listGate = nil
	s.mu.Unlock()
	if g != nil {
		close(g)
	}
}

func (s *Service) route(c *gin.Context) string {
	return c.Request.Method + " " + c.FullPath()
}

func (s *Service) count(c *gin.Context) {
	s.mu.Lock()
	s.calls[s.route(c)]++
	s.mu.Unlock()
	c.Next()
}

func (s *Service) injectFailure(c *gin.Context) {
	s.mu.Lock()
	st, ok := s.failNext[s.route(c)]
	delete(s.failNext, s.route(c))
	s.mu.Unlock()
	if ok {
		c.AbortWithStatusJSON(st, gin.H{"detail": "injected failure"})
		return
	}
	c.Next()
}

func (s *Service) find(id string) *model.Task {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}

func (s *Service) snapshot() gin.H {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]model.Task, len(s.tasks))
	copy(tasks, s.tasks)
	var logv any
	if s.currentLog != "" {
		logv = s.currentLog
	}
	return gin.H{"tasks": tasks, "current_log": logv}
}

func (s *Service) listTasks(c *gin.Context) {
	s.mu.Lock()
	g := s.listGate
	s.mu.Unlock()
	// Capture state before blocking so a gated response reflects the moment it was requested.
	body := s.snapshot()
	if g != nil {
		select {
		case <-g:
		case <-c.Request.Context().Done():
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Service) createTask(c *gin.Context) {
	var req struct {
		URL      string `json:"url"`
		Language string `json:"language"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if req.Language == "" {
		req.Language = model.DefaultLanguage
	}
	m := storeURLRe.FindStringSubmatch(req.URL)
	if m == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "无效的Apple Music URL"})
		return
	}
	id := m[4]
	if id == "" {
		id = m[5]
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "无效的Apple Music URL"})
		return
	}
	if !model.ValidLanguage(req.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "不支持的语言: " + req.Language})
		return
	}
	name, err := url.PathUnescape(m[3])
	if err != nil {
		name = m[3]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.find(id); t != nil {
		t.Language = req.Language
		t.Status = model.StatusPending
		t.StatusText = statusText[model.StatusPending]
		c.JSON(http.StatusOK, *t)
		return
	}
	t := model.Task{
		ID:         id,
		URL:        req.URL,
		Type:       m[2],
		Name:       name,
		Language:   req.Language,
		Status:     model.StatusPending,
		StatusText: statusText[model.StatusPending],
	}
	s.tasks = append(s.tasks, t)
	c.JSON(http.StatusOK, t)
}

func (s *Service) deleteTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if s.tasks[i].Status == model.StatusDownloading {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "无法删除正在下载的任务"})
			return
		}
		name := s.tasks[i].Name
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("任务 %s 已删除", name), "success": true})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "任务不存在"})
}

func (s *Service) cancelTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(c.Param("id"))
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "任务不存在"})
		return
	}
	if t.Status != model.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "只能取消等待中的任务"})
		return
	}
	t.Status = model.StatusCancelled
	t.StatusText = statusText[model.StatusCancelled]
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("任务 %s 已取消", t.Name), "success": true})
}

func (s *Service) restartTask(overwrite bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		t := s.find(c.Param("id"))
		if t == nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "任务不存在"})
			return
		}
		if !t.Status.IsTerminal() {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "当前状态不允许重启"})
			return
		}
		t.Status = model.StatusPending
		t.StatusText = statusText[model.StatusPending]
		t.Overwrite = overwrite
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("任务 %s 已重启", t.Name), "success": true})
	}
}

func (s *Service) updateLanguage(c *gin.Context) {
	var req struct {
		Language string `json:"language"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if !model.ValidLanguage(req.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "不支持的语言: " + req.Language})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(c.Param("id"))
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "任务不存在"})
		return
	}
	t.Language = req.Language
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("任务 %s 的语言已更新为 %s", t.Name, req.Language), "success": true})
}

func (s *Service) resetAll(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.tasks {
		if s.tasks[i].Status == model.StatusDownloading {
			continue
		}
		s.tasks[i].Status = model.StatusPending
		s.tasks[i].StatusText = statusText[model.StatusPending]
		n++
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("已重置 %d 个任务", n), "success": true})
}

func validBlob(name string) bool { return name == "cookies" || name == "config" }

func (s *Service) blobStatus(c *gin.Context) {
	name := c.Param("name")
	if !validBlob(name) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}
	s.mu.Lock()
	_, ok := s.blobs[name]
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"configured": ok, "path": "/config/" + name})
}

func (s *Service) blobContent(c *gin.Context) {
	name := c.Param("name")
	if !validBlob(name) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}
	s.mu.Lock()
	content := s.blobs[name]
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (s *Service) saveBlob(c *gin.Context) {
	name := c.Param("name")
	if !validBlob(name) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	s.mu.Lock()
	s.blobs[name] = req.Content
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": name + " saved", "success": true})
}
