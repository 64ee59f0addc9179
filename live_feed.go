package laptracker

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Time allowed to write a message to the peer.
const liveFeedWriteWait = 10 * time.Second

// Broadcaster pushes accepted laps and session lifecycle events out to the
// live scanner view.
type Broadcaster interface {
	Send(message LiveMessage) error
}

// NilBroadcaster drops messages; used when no live feed is attached, and in
// tests.
type NilBroadcaster struct{}

func (NilBroadcaster) Send(message LiveMessage) error {
	return nil
}

type LiveMessage struct {
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type liveLapData struct {
	SessionID      string  `json:"sessionId"`
	StudentName    string  `json:"studentName"`
	LapNumber      int     `json:"lapNumber"`
	LapTime        *int64  `json:"lapTime"`
	LapTimeText    string  `json:"lapTimeText"`
	TotalLaps      int     `json:"totalLaps"`
	ActiveStudents int     `json:"activeStudents"`
	SessionClock   string  `json:"sessionClock"`
	Distance       float64 `json:"distance"`
}

func newLapMessage(session *Session, result *ScanResult, now int64) LiveMessage {
	data := liveLapData{
		SessionID:      session.ID,
		StudentName:    result.Student.Name,
		LapNumber:      result.LapNumber,
		LapTime:        result.LapTime,
		TotalLaps:      session.TotalLaps(),
		ActiveStudents: session.ActiveStudents(),
		SessionClock:   FormatClock(now - session.StartTime),
		Distance:       float64(result.LapNumber) * session.DistancePerLap,
	}

	if result.LapTime != nil {
		data.LapTimeText = FormatClock(*result.LapTime)
	}

	return LiveMessage{
		EventType: "lap",
		Data:      data,
	}
}

func newSessionEndedMessage(session *Session) LiveMessage {
	return LiveMessage{
		EventType: "sessionEnded",
		Data:      session.ID,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type liveFeedHub struct {
	clients   map[*liveFeedClient]bool
	broadcast chan LiveMessage
	register  chan *liveFeedClient
}

func newLiveFeedHub() *liveFeedHub {
	return &liveFeedHub{
		broadcast: make(chan LiveMessage),
		register:  make(chan *liveFeedClient),
		clients:   make(map[*liveFeedClient]bool),
	}
}

func (h *liveFeedHub) Send(message LiveMessage) error {
	h.broadcast <- message

	return nil
}

func (h *liveFeedHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.receive <- message:
				default:
					close(client.receive)
					delete(h.clients, client)
				}
			}
		}
	}
}

type liveFeedClient struct {
	hub *liveFeedHub

	conn    *websocket.Conn
	receive chan LiveMessage
}

func (c *liveFeedClient) writePump() {
	ticker := time.NewTicker(time.Second * 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.receive:
			c.conn.SetWriteDeadline(time.Now().Add(liveFeedWriteWait))
			if !ok {
				// the hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.WithError(err).Errorf("could not send websocket message")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(liveFeedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type LiveFeedHandler struct {
	hub *liveFeedHub
}

// NewLiveFeedHandler starts the hub's fan-out loop; the returned handler is
// also the engine's Broadcaster.
func NewLiveFeedHandler() *LiveFeedHandler {
	hub := newLiveFeedHub()
	go hub.run()

	return &LiveFeedHandler{hub: hub}
}

func (lfh *LiveFeedHandler) Send(message LiveMessage) error {
	return lfh.hub.Send(message)
}

func (lfh *LiveFeedHandler) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		logrus.Error(err)
		return
	}

	client := &liveFeedClient{hub: lfh.hub, conn: c, receive: make(chan LiveMessage, 256)}
	client.hub.register <- client

	go client.writePump()
}
