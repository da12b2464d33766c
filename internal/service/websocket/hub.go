package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"funduscam/internal/dto"
	"funduscam/internal/logger"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"
)

// BroadcastQueue bounds how many encoded frames wait for the hub.
const BroadcastQueue = 8

// HubService fans frames out to connected preview viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, BroadcastQueue),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a viewer. After the hub has stopped the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for all viewers. It never blocks; when the queue
// is full the message is dropped.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// PublishFrame JPEG-encodes img and broadcasts it. Nothing is encoded while
// no viewer is connected.
func (h *HubService) PublishFrame(kind, path string, img gocv.Mat) {
	if img.Empty() || h.GetClientCount() == 0 {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		h.logger.Error("Failed to encode %s frame: %v", kind, err)
		return
	}
	encoded := base64.StdEncoding.EncodeToString(buf.GetBytes())
	buf.Close()

	msg, err := json.Marshal(dto.FrameMessage{Kind: kind, Path: path, Image: encoded})
	if err != nil {
		h.logger.Error("Failed to marshal %s frame: %v", kind, err)
		return
	}

	if !h.Broadcast(msg) && kind != dto.KindPreview {
		h.logger.Warning("Broadcast queue full, dropped %s frame", kind)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
