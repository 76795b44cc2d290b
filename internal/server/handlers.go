// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, operator endpoints, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/gorilla/websocket"
)

// Handlers serves the relay's HTTP surface.
type Handlers struct {
	hub      *Hub
	store    *message.Store
	cfg      Config
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandlers builds the HTTP handlers around a running hub.
func NewHandlers(cfg Config, hub *Hub, store *message.Store, log *slog.Logger) *Handlers {
	cfg = cfg.Sanitize()
	origins := newOriginPolicy(cfg.AllowedOrigins(), log)
	return &Handlers{
		hub:   hub,
		store: store,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		log: log,
	}
}

// WebSocket upgrades GET requests and hands the new connection to the hub.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.cfg, h.log)
	if err := h.hub.Register(client); err != nil {
		h.log.Warn("Rejecting connection", "addr", r.RemoteAddr, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
	}
}

// Health returns a plain text liveness message.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Relay chat server is running!")
}

// Stats reports connection and message counts plus process usage.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	stats := Stats{
		Connections: h.hub.ClientCount(),
		Messages:    h.store.Len(),
	}
	rss, cpu, err := processUsage()
	if err != nil {
		h.log.Debug("Process usage unavailable", "error", err)
	} else {
		stats.RSSBytes = rss
		stats.CPUPercent = cpu
	}
	h.writeJSON(w, stats)
}

// Messages returns the full message log in append order. Chat clients never
// call it; it exists for operators and cmd/inspect.
func (h *Handlers) Messages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.store.All())
}

func (h *Handlers) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("Error writing JSON response", "error", err)
	}
}

// TestPage serves an HTML page for trying the relay from a browser.
func (h *Handlers) TestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Relay Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { 
            border: 1px solid #ccc; 
            height: 300px; 
            padding: 10px; 
            overflow-y: scroll; 
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { 
            width: 300px; 
            padding: 5px; 
            margin-right: 10px;
        }
        button { 
            padding: 5px 15px; 
            background-color: #007cba; 
            color: white; 
            border: none; 
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { 
            margin: 10px 0; 
            padding: 5px; 
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Relay Chat Test</h1>
    
    <div id="status" class="status disconnected">Disconnected</div>
    
    <div>
        <input type="text" id="senderInput" placeholder="Your name..." style="width: 120px;">
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    
    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        const senderInput = document.getElementById('senderInput');

        function addMessage(message, sender) {
            const messageElement = document.createElement('div');
            messageElement.style.margin = '5px 0';
            messageElement.style.padding = '3px';
            
            if (sender) {
                const strong = document.createElement('strong');
                strong.textContent = sender + ': ';
                messageElement.style.color = sender === senderInput.value.trim() ? 'blue' : 'green';
                messageElement.appendChild(strong);
                messageElement.appendChild(document.createTextNode(message));
            } else {
                messageElement.style.color = 'gray';
                const em = document.createElement('em');
                em.textContent = message;
                messageElement.appendChild(em);
            }
            
            messagesDiv.appendChild(messageElement);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            if (connected) {
                statusDiv.textContent = 'Connected';
                statusDiv.className = 'status connected';
                messageInput.disabled = false;
                sendButton.disabled = false;
                connectButton.textContent = 'Disconnect';
            } else {
                statusDiv.textContent = 'Disconnected';
                statusDiv.className = 'status disconnected';
                messageInput.disabled = true;
                sendButton.disabled = true;
                connectButton.textContent = 'Connect';
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            
            ws.onopen = function(event) {
                addMessage('Connected to relay server');
                updateStatus(true);
            };
            
            ws.onmessage = function(event) {
                event.data.split('\n').forEach(function(line) {
                    const frame = JSON.parse(line);
                    if (frame.event === 'message:receive') {
                        addMessage(frame.data.content, frame.data.sender);
                    }
                });
            };
            
            ws.onclose = function(event) {
                addMessage('Connection closed');
                updateStatus(false);
                ws = null;
            };
            
            ws.onerror = function(error) {
                addMessage('Connection error: ' + error);
                updateStatus(false);
            };
        }

        function disconnect() {
            if (ws) {
                ws.close();
            }
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                disconnect();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const content = messageInput.value.trim();
            const sender = senderInput.value.trim();
            if (content && sender && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: 'message:send', data: {sender: sender, content: content}}));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		h.log.Warn("Error writing HTML response", "error", err)
	}
}
