package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/armahc19/watchparty-frontend/internal/api/http/converter"
	"github.com/armahc19/watchparty-frontend/internal/auth"
	"github.com/armahc19/watchparty-frontend/internal/domain"
	"github.com/armahc19/watchparty-frontend/internal/service"
	"github.com/armahc19/watchparty-frontend/lib/logger/sl"
)

type RoomController struct {
	rooms    service.RoomInteractor
	users    service.UserInteractor
	tokens   *auth.TokenManager
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewRoomController(rooms service.RoomInteractor, users service.UserInteractor, tokens *auth.TokenManager, log *slog.Logger) *RoomController {
	if log == nil {
		log = slog.Default()
	}
	return &RoomController{
		rooms:  rooms,
		users:  users,
		tokens: tokens,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (c *RoomController) CreateRoom(ctx *gin.Context) {
	type CreateRoomRequest struct {
		Title          string `json:"title" binding:"required"`
		HostID         string `json:"host_id" binding:"required"`
		ActivityType   string `json:"activity_type"`
		LifetimeMinute int    `json:"lifetime_minutes"`
	}
	var req CreateRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	hostID, err := uuid.Parse(req.HostID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid host uuid", "details": err.Error()})
		return
	}
	lifetime := time.Duration(req.LifetimeMinute) * time.Minute
	room, err := c.rooms.CreateRoom(ctx.Request.Context(), req.Title, hostID, domain.ActivityType(req.ActivityType), lifetime)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := c.rooms.GetRoom(ctx.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRoomExpired) {
			status = http.StatusGone
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) GetRoomByCode(ctx *gin.Context) {
	room, err := c.rooms.GetRoomByCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRoomExpired) {
			status = http.StatusGone
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) ListParticipants(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	users, err := c.rooms.ListParticipants(ctx.Request.Context(), roomID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"participants": users})
}

func (c *RoomController) ListFiles(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	files, err := c.rooms.ListFiles(ctx.Request.Context(), roomID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"files": files})
}

func (c *RoomController) AddFile(ctx *gin.Context) {
	type AddFileRequest struct {
		Name       string  `json:"file_name" binding:"required"`
		URL        string  `json:"file_url" binding:"required"`
		MimeType   string  `json:"file_type"`
		SizeBytes  int64   `json:"file_size"`
		Duration   float64 `json:"duration"`
		UploadedBy string  `json:"uploaded_by"`
	}

	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req AddFileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	uploadedBy := uuid.Nil
	if req.UploadedBy != "" {
		uploadedBy, err = uuid.Parse(req.UploadedBy)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid uploader id"})
			return
		}
	}

	file, err := c.rooms.AddFile(ctx.Request.Context(), roomID, uploadedBy, req.Name, req.URL, req.MimeType, req.SizeBytes, req.Duration)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"file": file})
}

func (c *RoomController) RemoveFile(ctx *gin.Context) {
	fileID, err := uuid.Parse(ctx.Param("fileID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	if err := c.rooms.RemoveFile(ctx.Request.Context(), fileID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ConnectRoom upgrades to a websocket and relays sync messages for one
// member until the connection drops. The bearer token is verified before
// the upgrade; a bad token never reaches the relay.
func (c *RoomController) ConnectRoom(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	userID, username, err := c.tokens.Verify(ctx.Query("token"))
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	user, err := c.users.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		user = &domain.User{ID: userID, Name: username, IsGuest: true}
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "failed to upgrade connection")
		return
	}

	member, err := c.rooms.RegisterMember(context.Background(), roomID, user)
	if err != nil {
		conn.WriteJSON(gin.H{"error": err.Error()})
		conn.Close()
		return
	}
	member.Socket = conn
	member.SetStatus(domain.MemberStatusConnected)

	go forwardMemberEvents(member, conn)

	for {
		var msg domain.SyncMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Unregistering closes the event stream, which makes the
			// pump goroutine close the socket.
			_ = c.rooms.UnregisterMember(context.Background(), roomID, member.ID)
			return
		}

		if err := c.rooms.HandleSync(context.Background(), roomID, member.ID, &msg); err != nil {
			c.log.Debug("sync message refused",
				slog.String("member_id", member.ID),
				slog.String("type", string(msg.Type)),
				sl.Err(err),
			)
		}
	}
}

// forwardMemberEvents pumps the member's event stream onto the wire. It is
// the socket's sole owner: the socket is closed exactly once, here, when
// the stream ends or the peer stops reading.
func forwardMemberEvents(member *domain.Member, conn *websocket.Conn) {
	defer conn.Close()

	for event := range member.Events {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
