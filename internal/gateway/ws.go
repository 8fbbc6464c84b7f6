package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"agentgate/internal/domain"
)

// ChatBrain is the interface used by the WS handler to generate replies.
// Implementations (e.g. brain.Brain) decide whether a tool round is needed.
type ChatBrain interface {
	Respond(ctx context.Context, messages []domain.Message, systemPrompt string) (string, error)
}

// DefaultChannelID is used when a message arrives without a ChannelID.
const DefaultChannelID = "default"

// WSMessage is the JSON message protocol for the WebSocket gateway.
// Example: {"type": "chat", "content": "hello", "channelId": "general"}
type WSMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	ChannelID string `json:"channelId,omitempty"`
}

// jsonMarshal is used when encoding WSMessage; tests may replace it to force Marshal errors.
// Access is protected by jsonMarshalMu for race-safe test swaps.
var (
	jsonMarshalMu sync.RWMutex
	jsonMarshal   = json.Marshal
)

// Default upgrader for WebSocket connections.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request to WebSocket and runs a read loop, responding
// on the same connection. If brain is non-nil and message type is "chat", the
// message is appended to a per-connection, per-channel history and the reply
// comes from brain.Respond with the agent instruction as system prompt;
// otherwise echo. ChannelID from the incoming message is preserved in the
// response. Messages without a ChannelID are assigned to the "default" channel.
// Writes are serialized with a mutex so multiple goroutines could write safely.
// Only GET is accepted for the WebSocket handshake.
func HandleWS(w http.ResponseWriter, r *http.Request, brain ChatBrain, identity *domain.AgentIdentity) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	systemPrompt := ""
	if identity != nil {
		systemPrompt = identity.Instruction
	}

	// Channel histories live and die with the connection.
	histories := map[string][]domain.Message{}

	var writeMu sync.Mutex
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var in WSMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			reply := WSMessage{Type: "error", Content: "invalid JSON"}
			writeWSMessage(conn, &writeMu, &reply)
			continue
		}

		channelID := in.ChannelID
		if channelID == "" {
			channelID = DefaultChannelID
		}

		isBrainChat := brain != nil && in.Type == "chat"

		// Send typing_start before brain generation.
		if isBrainChat {
			typingStart := WSMessage{Type: "typing_start", ChannelID: channelID}
			writeWSMessage(conn, &writeMu, &typingStart)
		}

		content := "echo: " + in.Content
		if isBrainChat {
			history := append(histories[channelID], domain.Message{
				Role:      domain.RoleUser,
				Content:   in.Content,
				Timestamp: time.Now(),
			})
			reply, err := brain.Respond(r.Context(), history, systemPrompt)
			if err != nil {
				content = "error: " + err.Error()
				histories[channelID] = history
			} else {
				content = reply
				histories[channelID] = append(history, domain.Message{
					Role:      domain.RoleAssistant,
					Content:   reply,
					Timestamp: time.Now(),
				})
			}
		}
		out := WSMessage{Type: in.Type, Content: content, ChannelID: channelID}
		writeWSMessage(conn, &writeMu, &out)

		// Send typing_stop after brain response is delivered.
		if isBrainChat {
			typingStop := WSMessage{Type: "typing_stop", ChannelID: channelID}
			writeWSMessage(conn, &writeMu, &typingStop)
		}
	}
}

func writeWSMessage(conn *websocket.Conn, mu *sync.Mutex, msg *WSMessage) {
	jsonMarshalMu.RLock()
	marshal := jsonMarshal
	jsonMarshalMu.RUnlock()
	data, err := marshal(msg)
	if err != nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}
