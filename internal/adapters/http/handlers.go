package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/app"
	"github.com/dkeye/beacon/internal/config"
	"github.com/dkeye/beacon/internal/core"
	"github.com/dkeye/beacon/internal/domain"
)

// API exposes room CRUD and diagnostics over the same stores the
// signaling relay mutates. It contains no algorithmic content of its
// own; everything room-shaped happens in internal/app.
type API struct {
	Rooms     *app.RoomStore
	Health    *app.HealthStore
	Transport core.Transport
	Cfg       *config.Config

	startedAt time.Time
}

func NewAPI(rooms *app.RoomStore, health *app.HealthStore, transport core.Transport, cfg *config.Config) *API {
	return &API{
		Rooms:     rooms,
		Health:    health,
		Transport: transport,
		Cfg:       cfg,
		startedAt: time.Now(),
	}
}

func (a *API) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Signaling Server API"})
}

// CreateRoomLegacy keeps the original GET shape: always 200, message
// tells existing from created.
func (a *API) CreateRoomLegacy(c *gin.Context) {
	roomID := domain.RoomID(c.Query("roomId"))
	if a.Rooms.Exists(roomID) {
		c.JSON(http.StatusOK, gin.H{"message": "Room already exists", "roomId": roomID})
		return
	}
	a.Rooms.Ensure(roomID)
	c.JSON(http.StatusOK, gin.H{"message": "Room created", "roomId": roomID})
}

func (a *API) FindRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Query("roomId"))
	if a.Rooms.Exists(roomID) {
		c.JSON(http.StatusOK, gin.H{"message": "Room found", "roomId": roomID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room not found", "roomId": roomID})
}

func (a *API) CreateRoom(c *gin.Context) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId required"})
		return
	}
	if !a.Rooms.Create(domain.RoomID(req.RoomID)) {
		c.JSON(http.StatusConflict, gin.H{"error": "room already exists", "roomId": req.RoomID})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "room created", "roomId": req.RoomID})
}

func (a *API) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.Rooms.List()})
}

// DeleteRoom drops the room and force-evicts its members from the
// transport group so no stray broadcast reaches them afterwards.
func (a *API) DeleteRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	if !a.Rooms.Exists(roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	for _, id := range a.Transport.GroupMembers(roomID) {
		a.Transport.LeaveGroup(id, roomID)
	}
	a.Rooms.Delete(roomID)
	c.JSON(http.StatusOK, gin.H{"message": "room deleted", "roomId": roomID})
}

func (a *API) ListParticipants(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	infos := a.Rooms.Participants(roomID, "")
	ids := make([]domain.ConnID, 0, len(infos))
	for _, p := range infos {
		ids = append(ids, p.SocketID)
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":       roomID,
		"participants": ids,
		"count":        len(ids),
	})
}

func (a *API) ListMessages(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	if !a.Rooms.Exists(roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	msgs := a.Rooms.Messages(roomID)
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":   roomID,
		"messages": msgs,
		"count":    len(msgs),
	})
}

// PostMessage injects a chat message on behalf of an external system:
// broadcast to the room, then stored in history like any other.
func (a *API) PostMessage(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	var req struct {
		Message string          `json:"message"`
		Sender  domain.UserData `json:"sender"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}
	if !a.Rooms.Exists(roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	sender := req.Sender
	if sender == nil {
		sender = domain.UserData{"id": "system", "name": "System"}
	}
	msg, err := domain.NewChatMessage(sender, "system", req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}
	a.Transport.SendToGroup(roomID, "chat-message", msg)
	a.Rooms.AppendMessage(roomID, msg)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "message sent",
		"messageData": msg,
	})
}

func (a *API) ListConnections(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	if !a.Rooms.Exists(roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	conns := a.Rooms.Connections(roomID)
	if conns == nil {
		conns = []app.ConnectionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":      roomID,
		"connections": conns,
		"count":       len(conns),
	})
}

// Signal forwards an arbitrary event to a connection or a whole room.
func (a *API) Signal(c *gin.Context) {
	var req struct {
		RoomID   string          `json:"roomId"`
		Event    string          `json:"event"`
		Data     json.RawMessage `json:"data"`
		TargetID string          `json:"targetId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" || req.Event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and event required"})
		return
	}
	if req.TargetID != "" {
		a.Transport.SendToConn(domain.ConnID(req.TargetID), req.Event, req.Data)
		log.Info().Str("module", "adapters.http").Str("event", req.Event).Str("target", req.TargetID).Msg("signal forwarded to connection")
	} else {
		a.Transport.SendToGroup(domain.RoomID(req.RoomID), req.Event, req.Data)
		log.Info().Str("module", "adapters.http").Str("event", req.Event).Str("room", req.RoomID).Msg("signal forwarded to room")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "signal sent"})
}

func (a *API) ICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": a.Cfg.ICEServers()})
}

// CheckSTUNServers ingests client reachability reports and answers
// with the health-ranked recommendation.
func (a *API) CheckSTUNServers(c *gin.Context) {
	if raw := c.Query("reports"); raw != "" {
		var reports []struct {
			URL     string `json:"url"`
			Success *bool  `json:"success"`
		}
		if err := json.Unmarshal([]byte(raw), &reports); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("bad stun report payload")
		} else {
			for _, rep := range reports {
				if rep.URL == "" || rep.Success == nil {
					continue
				}
				a.Health.Record(rep.URL, *rep.Success)
			}
			log.Info().Str("module", "adapters.http").Int("servers", len(reports)).Msg("stun health reports ingested")
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "recommended STUN servers",
		"iceServers": a.Health.Recommend(a.Cfg.ICEServers()),
	})
}

func heapMB() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return strconv.FormatFloat(float64(m.HeapAlloc)/1024/1024, 'f', 2, 64) + " MB"
}

func (a *API) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime":      time.Since(a.startedAt).Seconds(),
		"timestamp":   time.Now().UnixMilli(),
		"connections": a.Transport.ConnCount(),
		"rooms":       a.Rooms.RoomCount(),
		"memoryUsage": heapMB(),
	})
}

func (a *API) Diagnostics(c *gin.Context) {
	type socketDetail struct {
		ID    domain.ConnID   `json:"id"`
		Rooms []domain.RoomID `json:"rooms"`
	}
	conns := a.Transport.Conns()
	details := make([]socketDetail, 0, len(conns))
	for _, id := range conns {
		details = append(details, socketDetail{ID: id, Rooms: a.Transport.GroupsOf(id)})
	}
	c.JSON(http.StatusOK, gin.H{
		"server": gin.H{
			"uptime":      time.Since(a.startedAt).Seconds(),
			"timestamp":   time.Now().UnixMilli(),
			"memoryUsage": heapMB(),
		},
		"connections": gin.H{
			"total": len(conns),
			"rooms": a.Rooms.RoomCount(),
		},
		"socketDetails": details,
		"roomData":      a.Rooms.Diagnostics(),
	})
}

// ExternalChatLog accepts a chat log entry for a downstream system.
// Today it only validates and logs; the forwarding hook is the caller
// contract, not the implementation.
func (a *API) ExternalChatLog(c *gin.Context) {
	var req struct {
		RoomID     string `json:"roomId"`
		SenderID   string `json:"senderId"`
		ReceiverID string `json:"receiverId"`
		Message    string `json:"message"`
		Timestamp  string `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" || req.SenderID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId, senderId and message required"})
		return
	}
	entry := gin.H{
		"id":         fmt.Sprintf("%d", time.Now().UnixMilli()),
		"roomId":     req.RoomID,
		"senderId":   req.SenderID,
		"receiverId": orDefault(req.ReceiverID, "room"),
		"message":    req.Message,
		"timestamp":  orDefault(req.Timestamp, time.Now().UTC().Format(time.RFC3339)),
		"serviceId":  "webrtc-signaling",
	}
	log.Info().Str("module", "adapters.http").Str("sender", req.SenderID).Str("room", req.RoomID).Msg("external chat log")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "chat log recorded", "logEntry": entry})
}

// ExternalCallLog mirrors ExternalChatLog for call lifecycle events.
func (a *API) ExternalCallLog(c *gin.Context) {
	var req struct {
		RoomID     string  `json:"roomId"`
		CallerID   string  `json:"callerId"`
		ReceiverID string  `json:"receiverId"`
		Status     string  `json:"status"`
		Timestamp  string  `json:"timestamp"`
		Duration   float64 `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" || req.CallerID == "" || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId, callerId and status required"})
		return
	}
	entry := gin.H{
		"id":         fmt.Sprintf("%d", time.Now().UnixMilli()),
		"roomId":     req.RoomID,
		"callerId":   req.CallerID,
		"receiverId": orDefault(req.ReceiverID, "room"),
		"status":     req.Status,
		"timestamp":  orDefault(req.Timestamp, time.Now().UTC().Format(time.RFC3339)),
		"duration":   req.Duration,
		"serviceId":  "webrtc-signaling",
	}
	log.Info().Str("module", "adapters.http").Str("caller", req.CallerID).Str("status", req.Status).Msg("external call log")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "call log recorded", "logEntry": entry})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
