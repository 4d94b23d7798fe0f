package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"faderbridge/lib/state"
)

const RequestIDHeader = "X-Request-Id"

// Controller is the set of operations the web UI can trigger. Calls are
// asynchronous; the outcome shows up on /api/state and /api/events.
type Controller interface {
	TogglePgm(fader int)
	ToggleVo(fader int)
	TogglePst(fader int)
	TogglePstVo(fader int)
	TogglePfl(fader int)
	ToggleMute(fader int)
	SetFaderLevel(fader int, level float64)
	SetFaderLabel(fader int, label string)
	SetInputGain(fader int, level float64)
	SetInputSelector(fader, selected int)
	SetFx(fader int, param state.FxParam, level float64)
	ToggleSlowFade(fader int)
	ToggleAMix(fader int)
	ToggleIgnoreAutomation(fader int)
	SetFaderMonitor(fader, aux int)
	ToggleAllManual()
	NextMix()
	ClearPst()
	SetAssignedFader(mixer, ch, fader int) bool
	SetAuxLevel(mixer, ch, aux int, level float64) bool
	SetChannelLabel(mixer, ch int, label string) bool
}

type Server struct {
	store *state.Store
	ctl   Controller
	log   *slog.Logger
}

func New(store *state.Store, ctl Controller, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, ctl: ctl, log: log.With("component", "api")}
}

// Router builds the gin engine. Callers set gin's mode beforehand.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog)

	r.GET("/api/state", s.handleGetState)
	r.GET("/api/events", s.handleEvents)
	r.POST("/api/nextmix", func(c *gin.Context) {
		s.ctl.NextMix()
		accepted(c)
	})
	r.POST("/api/clearpst", func(c *gin.Context) {
		s.ctl.ClearPst()
		accepted(c)
	})
	r.POST("/api/allmanual", func(c *gin.Context) {
		s.ctl.ToggleAllManual()
		accepted(c)
	})

	f := r.Group("/api/faders/:fader")
	f.POST("/pgm", s.toggle(s.ctl.TogglePgm))
	f.POST("/vo", s.toggle(s.ctl.ToggleVo))
	f.POST("/pst", s.toggle(s.ctl.TogglePst))
	f.POST("/pstvo", s.toggle(s.ctl.TogglePstVo))
	f.POST("/pfl", s.toggle(s.ctl.TogglePfl))
	f.POST("/mute", s.toggle(s.ctl.ToggleMute))
	f.POST("/slowfade", s.toggle(s.ctl.ToggleSlowFade))
	f.POST("/amix", s.toggle(s.ctl.ToggleAMix))
	f.POST("/ignore", s.toggle(s.ctl.ToggleIgnoreAutomation))
	f.POST("/monitor", s.handleMonitor)
	f.POST("/level", s.level(s.ctl.SetFaderLevel))
	f.POST("/gain", s.level(s.ctl.SetInputGain))
	f.POST("/label", s.handleFaderLabel)
	f.POST("/selector", s.handleSelector)
	f.POST("/fx", s.handleFx)

	ch := r.Group("/api/mixers/:mixer/channels/:channel")
	ch.POST("/assign", s.handleAssign)
	ch.POST("/aux", s.handleAux)
	ch.POST("/label", s.handleChannelLabel)
	return r
}

func (s *Server) requestLog(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("requestID", id)
	c.Header(RequestIDHeader, id)
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"id", id,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(start))
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.State())
}

// handleEvents streams a state snapshot on connect and after every change.
// Slow clients only see the latest snapshot.
func (s *Server) handleEvents(c *gin.Context) {
	updates := make(chan state.State, 1)
	push := func(st state.State) {
		select {
		case updates <- st:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- st:
		default:
		}
	}
	push(s.store.State())
	unsubscribe := s.store.Subscribe(push)
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case st := <-updates:
			c.SSEvent("state", st)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) toggle(fn func(int)) gin.HandlerFunc {
	return func(c *gin.Context) {
		fader, ok := s.fader(c)
		if !ok {
			return
		}
		fn(fader)
		accepted(c)
	}
}

func (s *Server) level(fn func(int, float64)) gin.HandlerFunc {
	return func(c *gin.Context) {
		fader, ok := s.fader(c)
		if !ok {
			return
		}
		var body struct {
			Level *float64 `json:"level" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fn(fader, *body.Level)
		accepted(c)
	}
}

func (s *Server) handleFaderLabel(c *gin.Context) {
	fader, ok := s.fader(c)
	if !ok {
		return
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ctl.SetFaderLabel(fader, body.Label)
	accepted(c)
}

func (s *Server) handleSelector(c *gin.Context) {
	fader, ok := s.fader(c)
	if !ok {
		return
	}
	var body struct {
		Selected *int `json:"selected" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ctl.SetInputSelector(fader, *body.Selected)
	accepted(c)
}

// handleMonitor points the fader's monitor at an aux; a negative aux clears
// it.
func (s *Server) handleMonitor(c *gin.Context) {
	fader, ok := s.fader(c)
	if !ok {
		return
	}
	var body struct {
		Aux *int `json:"aux" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ctl.SetFaderMonitor(fader, *body.Aux)
	accepted(c)
}

func (s *Server) handleFx(c *gin.Context) {
	fader, ok := s.fader(c)
	if !ok {
		return
	}
	var body struct {
		Param string   `json:"param" binding:"required"`
		Level *float64 `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ctl.SetFx(fader, state.FxParam(body.Param), *body.Level)
	accepted(c)
}

func (s *Server) handleAssign(c *gin.Context) {
	mixer, ch, ok := s.channel(c)
	if !ok {
		return
	}
	var body struct {
		Fader *int `json:"fader" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.ctl.SetAssignedFader(mixer, ch, *body.Fader) {
		c.JSON(http.StatusNotFound, gin.H{"error": "mixer not connected"})
		return
	}
	accepted(c)
}

func (s *Server) handleAux(c *gin.Context) {
	mixer, ch, ok := s.channel(c)
	if !ok {
		return
	}
	var body struct {
		Aux   *int     `json:"aux" binding:"required"`
		Level *float64 `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.ctl.SetAuxLevel(mixer, ch, *body.Aux, *body.Level) {
		c.JSON(http.StatusNotFound, gin.H{"error": "mixer not connected"})
		return
	}
	accepted(c)
}

func (s *Server) handleChannelLabel(c *gin.Context) {
	mixer, ch, ok := s.channel(c)
	if !ok {
		return
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.ctl.SetChannelLabel(mixer, ch, body.Label) {
		c.JSON(http.StatusNotFound, gin.H{"error": "mixer not connected"})
		return
	}
	accepted(c)
}

func (s *Server) fader(c *gin.Context) (int, bool) {
	fader, err := strconv.Atoi(c.Param("fader"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fader"})
		return 0, false
	}
	if _, ok := s.store.State().Fader(fader); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown fader"})
		return 0, false
	}
	return fader, true
}

func (s *Server) channel(c *gin.Context) (int, int, bool) {
	mixer, err := strconv.Atoi(c.Param("mixer"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mixer"})
		return 0, 0, false
	}
	ch, err := strconv.Atoi(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return 0, 0, false
	}
	if _, ok := s.store.State().Channel(mixer, ch); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return 0, 0, false
	}
	return mixer, ch, true
}

func accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{"requestId": c.GetString("requestID")})
}
