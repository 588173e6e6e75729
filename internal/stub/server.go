// Package stub is a development stand-in for the Chat Atlas backend. It
// reproduces the server contract the client depends on — room listing and
// creation, history replay on join, message broadcast, heartbeat-driven
// presence — with in-memory storage. End-to-end tests and `atlaschat stub`
// run against it.
package stub

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	// presenceWindow is how long a heartbeat keeps a user listed online.
	presenceWindow = 60 * time.Second
	// historyLimit caps the history replayed on join.
	historyLimit = 50

	// Per-user send budget: 5 messages per minute, matching the
	// production backend.
	rateLimitBurst  = 5
	rateLimitPeriod = 12 * time.Second
)

// record is a stored message in the wire shape the client receives.
type record struct {
	ID        string `json:"id"`
	Room      string `json:"room"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt string `json:"created_at"`
}

type room struct {
	name         string
	private      bool
	passwordHash string

	messages []record
	index    map[string]int // message id -> position, for before_id paging
	subs     map[*subscriber]struct{}
	presence map[string]time.Time
}

type profileEntry struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Server holds the stub's in-memory state.
type Server struct {
	log *zerolog.Logger

	mu       sync.Mutex
	rooms    map[string]*room
	profiles []profileEntry
	limiters map[string]*rate.Limiter
}

// New builds an empty stub server.
func New(logger *zerolog.Logger) *Server {
	return &Server{
		log:      logger,
		rooms:    make(map[string]*room),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler returns the HTTP handler covering REST and WebSocket routes.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/rooms", s.listRooms)
	engine.POST("/rooms", s.createRoom)
	engine.POST("/rooms/:room/join", s.joinRoom)
	engine.GET("/rooms/:room/messages", s.roomMessages)
	engine.POST("/rooms/:room/messages", s.postMessage)
	engine.GET("/rooms/:room/presence", s.roomPresence)
	engine.POST("/users/profile", s.saveProfile)
	engine.GET("/users/profiles", s.listProfiles)
	engine.GET("/ws/:room", s.serveRoomSocket)

	return engine
}

// ensureRoomLocked returns the room record, creating a public one on
// first contact. Callers must hold s.mu.
func (s *Server) ensureRoomLocked(name string) *room {
	r, ok := s.rooms[name]
	if !ok {
		r = &room{
			name:     name,
			index:    make(map[string]int),
			subs:     make(map[*subscriber]struct{}),
			presence: make(map[string]time.Time),
		}
		s.rooms[name] = r
	}
	return r
}

func (s *Server) limiterLocked(roomName, username string) *rate.Limiter {
	key := roomName + ":" + username
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(rateLimitPeriod), rateLimitBurst)
		s.limiters[key] = l
	}
	return l
}

// ==== REST handlers ====

type roomEntry struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

func (s *Server) listRooms(c *gin.Context) {
	s.mu.Lock()
	entries := lo.MapToSlice(s.rooms, func(name string, r *room) roomEntry {
		return roomEntry{Name: name, IsPrivate: r.private}
	})
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"rooms": entries})
}

type createRoomRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=64"`
	IsPrivate bool   `json:"is_private"`
	Password  string `json:"password"`
}

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[req.Name]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "room already exists"})
		return
	}

	r := s.ensureRoomLocked(req.Name)
	r.private = req.IsPrivate
	if req.IsPrivate && req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
			return
		}
		r.passwordHash = string(hash)
	}

	s.log.Info().Str("room", req.Name).Bool("private", req.IsPrivate).Msg("room created")
	c.JSON(http.StatusCreated, gin.H{"id": uuid.NewString(), "name": req.Name, "is_private": req.IsPrivate})
}

func (s *Server) joinRoom(c *gin.Context) {
	name := c.Param("room")

	var body struct {
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	r, ok := s.rooms[name]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "room not found"})
		return
	}
	if r.private && r.passwordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(r.passwordHash), []byte(body.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid password"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "room": name})
}

func (s *Server) roomMessages(c *gin.Context) {
	name := c.Param("room")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 200 {
			limit = n
		}
	}
	beforeID := c.Query("before_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.ensureRoomLocked(name)
	end := len(r.messages)
	if beforeID != "" {
		pos, ok := r.index[beforeID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid before_id"})
			return
		}
		end = pos
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	items := make([]record, end-start)
	copy(items, r.messages[start:end])
	next := ""
	if len(items) > 0 {
		next = items[0].ID
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "next_cursor": next})
}

type messageRequest struct {
	Username string `json:"username" binding:"required,min=1,max=50"`
	Content  string `json:"content" binding:"required,min=1,max=1000"`
	Avatar   string `json:"avatar"`
}

func (s *Server) postMessage(c *gin.Context) {
	name := c.Param("room")

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message must not be empty"})
		return
	}

	s.mu.Lock()
	if !s.limiterLocked(name, req.Username).Allow() {
		s.mu.Unlock()
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
		return
	}
	item := s.appendLocked(name, req.Username, content, req.Avatar)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, item)
}

func (s *Server) roomPresence(c *gin.Context) {
	name := c.Param("room")
	cutoff := time.Now().Add(-presenceWindow)

	s.mu.Lock()
	r := s.ensureRoomLocked(name)
	online := make([]string, 0, len(r.presence))
	for user, seen := range r.presence {
		if seen.After(cutoff) {
			online = append(online, user)
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"online": online})
}

type profileRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=50"`
	Avatar string `json:"avatar"`
}

func (s *Server) saveProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	s.profiles = append(s.profiles, profileEntry{Name: req.Name, Avatar: req.Avatar})
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"id": uuid.NewString(), "name": req.Name, "avatar": req.Avatar})
}

func (s *Server) listProfiles(c *gin.Context) {
	s.mu.Lock()
	entries := make([]profileEntry, len(s.profiles))
	copy(entries, s.profiles)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"profiles": entries})
}

// appendLocked stores a message, assigns its identity and canonical
// timestamp, and broadcasts it. Callers must hold s.mu.
func (s *Server) appendLocked(roomName, username, content, avatar string) record {
	r := s.ensureRoomLocked(roomName)

	item := record{
		ID:        uuid.NewString(),
		Room:      roomName,
		Username:  username,
		Content:   content,
		Avatar:    avatar,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	r.index[item.ID] = len(r.messages)
	r.messages = append(r.messages, item)

	r.broadcastLocked(frameEnvelope{Type: "message", Item: &item})
	return item
}
