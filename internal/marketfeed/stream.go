package marketfeed

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"futures-trader-core/internal/logging"
)

const (
	reconnectBaseDelay = 5 * time.Second
	reconnectMaxDelay  = 60 * time.Second
	maxReconnectTries  = 10
	heartbeatInterval  = 20 * time.Second
	idleTimeout        = 60 * time.Second
	maxHeartbeatMisses = 3
)

// WSStream is the gorilla/websocket-backed implementation of StreamClient:
// a connect loop with exponential backoff, a readLoop/handleMessage
// dispatch, and keepalive, generalized to an arbitrary, resubscribable
// set of kline/ticker topics.
type WSStream struct {
	url string
	on  func(symbol, interval string, k Kline)
	onT func(symbol string, price float64)

	mu         sync.Mutex
	conn       *websocket.Conn
	topics     map[string]bool
	running    bool
	stopCh     chan struct{}
	nextID     int64
	missedBeat int32

	log *logging.Logger
}

// NewWSStream builds a stream worker. onKline/onTicker are invoked from
// the read loop goroutine for every applied message.
func NewWSStream(url string, onKline func(symbol, interval string, k Kline), onTicker func(symbol string, price float64)) *WSStream {
	return &WSStream{
		url:    url,
		on:     onKline,
		onT:    onTicker,
		topics: make(map[string]bool),
		log:    logging.WithComponent("marketfeed.stream"),
	}
}

// Start begins the connect loop in the background. Idempotent.
func (s *WSStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	go s.connectLoop(ctx)
	return nil
}

// Stop terminates the connect loop and closes any open connection.
// Idempotent.
func (s *WSStream) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Subscribe adds topics to the live subscription set and, if connected,
// sends a SUBSCRIBE frame immediately.
func (s *WSStream) Subscribe(topics []string) error {
	s.mu.Lock()
	for _, t := range topics {
		s.topics[t] = true
	}
	conn := s.conn
	id := atomic.AddInt64(&s.nextID, 1)
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return sendSubscription(conn, "SUBSCRIBE", topics, id)
}

// Unsubscribe removes topics and, if connected, sends an UNSUBSCRIBE frame.
func (s *WSStream) Unsubscribe(topics []string) error {
	s.mu.Lock()
	for _, t := range topics {
		delete(s.topics, t)
	}
	conn := s.conn
	id := atomic.AddInt64(&s.nextID, 1)
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return sendSubscription(conn, "UNSUBSCRIBE", topics, id)
}

func sendSubscription(conn *websocket.Conn, method string, topics []string, id int64) error {
	msg := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{Method: method, Params: topics, ID: id}
	return conn.WriteJSON(msg)
}

func (s *WSStream) connectLoop(ctx context.Context) {
	attempt := 0
	delay := reconnectBaseDelay

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			attempt++
			if attempt > maxReconnectTries {
				s.log.Error("stream worker surrendering after repeated connect failures", "attempts", attempt, "error", err)
				return
			}
			s.log.Warn("connect failed, retrying", "attempt", attempt, "delay", delay.String(), "error", err)
			select {
			case <-time.After(delay):
			case <-s.stopCh:
				return
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		attempt = 0
		delay = reconnectBaseDelay
		atomic.StoreInt32(&s.missedBeat, 0)

		s.mu.Lock()
		s.conn = conn
		topics := make([]string, 0, len(s.topics))
		for t := range s.topics {
			topics = append(topics, t)
		}
		s.mu.Unlock()

		if len(topics) > 0 {
			id := atomic.AddInt64(&s.nextID, 1)
			if err := sendSubscription(conn, "SUBSCRIBE", topics, id); err != nil {
				s.log.Warn("resubscribe after reconnect failed", "error", err)
			}
		}

		stopHeartbeat := make(chan struct{})
		go s.heartbeatLoop(conn, stopHeartbeat)

		s.readLoop(conn)
		close(stopHeartbeat)

		s.mu.Lock()
		s.conn = nil
		stillRunning := s.running
		s.mu.Unlock()

		if !stillRunning {
			return
		}
		s.log.Warn("connection lost, reconnecting")
	}
}

func (s *WSStream) heartbeatLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if atomic.AddInt32(&s.missedBeat, 1) >= maxHeartbeatMisses {
					s.log.Warn("heartbeat failed repeatedly, forcing reconnect")
					conn.Close()
					return
				}
				continue
			}
			atomic.StoreInt32(&s.missedBeat, 0)
		}
	}
}

func (s *WSStream) readLoop(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(idleTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.log.Warn("read error, closing connection", "error", err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		s.handleMessage(message)
	}
}

// wireEvent matches both the single-stream shape (event type field "e")
// and the combined-stream envelope {stream, data}.
type wireEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
	Event  string          `json:"e"`
	Symbol string          `json:"s"`
	Kline  *wireKline      `json:"k"`
	Price  string          `json:"c"`
}

type wireKline struct {
	OpenTime    int64  `json:"t"`
	CloseTime   int64  `json:"T"`
	Interval    string `json:"i"`
	Open        string `json:"o"`
	High        string `json:"h"`
	Low         string `json:"l"`
	Close       string `json:"c"`
	Volume      string `json:"v"`
	QuoteVolume string `json:"q"`
	TradeCount  int64  `json:"n"`
	IsClosed    bool   `json:"x"`
}

func (s *WSStream) handleMessage(raw []byte) {
	var env wireEvent
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn("failed to parse stream message", "error", err)
		return
	}

	payload := raw
	if env.Data != nil {
		payload = env.Data
		var inner wireEvent
		if err := json.Unmarshal(payload, &inner); err != nil {
			s.log.Warn("failed to parse combined-stream payload", "error", err)
			return
		}
		env = inner
	}

	switch {
	case env.Event == "kline" && env.Kline != nil:
		if !env.Kline.IsClosed {
			return
		}
		k := Kline{
			OpenTime:    env.Kline.OpenTime,
			CloseTime:   env.Kline.CloseTime,
			Open:        parseFloat(env.Kline.Open),
			High:        parseFloat(env.Kline.High),
			Low:         parseFloat(env.Kline.Low),
			Close:       parseFloat(env.Kline.Close),
			Volume:      parseFloat(env.Kline.Volume),
			QuoteVolume: parseFloat(env.Kline.QuoteVolume),
			TradeCount:  env.Kline.TradeCount,
			Closed:      true,
		}
		if s.on != nil {
			s.on(strings.ToUpper(env.Symbol), env.Kline.Interval, k)
		}
	case env.Event == "24hrTicker" || env.Price != "":
		if s.onT != nil && env.Symbol != "" {
			s.onT(strings.ToUpper(env.Symbol), parseFloat(env.Price))
		}
	}
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
