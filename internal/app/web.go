package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/serve_sense/internal/config"
	"github.com/relabs-tech/serve_sense/internal/decision"
	"github.com/relabs-tech/serve_sense/internal/packet"
)

// resultView is the JSON shape served by /api/result.
type resultView struct {
	Label     string     `json:"label"`
	Percents  [4]float64 `json:"percents"`
	Raw       string     `json:"raw"`
	Recording bool       `json:"recording"`
}

// sampleView is the JSON shape pushed over the websocket.
type sampleView struct {
	Millis   uint32  `json:"millis"`
	Session  uint16  `json:"session"`
	Sequence uint16  `json:"sequence"`
	Ax       float32 `json:"ax"`
	Ay       float32 `json:"ay"`
	Az       float32 `json:"az"`
	Gx       float32 `json:"gx"`
	Gy       float32 `json:"gy"`
	Gz       float32 `json:"gz"`
	Marker   bool    `json:"marker"`
}

var upgrader = websocket.Upgrader{
	// The live view is served from the same host; skip origin checks.
	CheckOrigin: func(*http.Request) bool { return true },
}

// RunWeb serves the live view: latest result as JSON, decoded samples over
// a websocket, static files from ./web as the root.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu         sync.RWMutex
		lastResult resultView
		haveResult bool
		recording  bool
	)

	var (
		subMu       sync.Mutex
		subscribers = map[*websocket.Conn]chan sampleView{}
	)

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Track the recording state and the latest result
	stateToken := client.Subscribe(cfg.TopicState, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if len(msg.Payload()) != 1 {
			return
		}
		mu.Lock()
		recording = msg.Payload()[0] == 1
		mu.Unlock()
	})
	stateToken.Wait()
	if stateToken.Error() != nil {
		return stateToken.Error()
	}

	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		text := string(msg.Payload())
		label, percents, err := decision.ParseMessage(text)
		if err != nil {
			log.Printf("web: %v", err)
			return
		}
		mu.Lock()
		lastResult = resultView{Label: label, Percents: percents, Raw: text}
		haveResult = true
		mu.Unlock()
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}

	// 3) Fan decoded stream packets out to websocket clients
	streamToken := client.Subscribe(cfg.TopicStream, 0, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := packet.Decode(msg.Payload())
		if err != nil {
			return
		}
		view := sampleView{
			Millis:   p.Millis,
			Session:  p.Session,
			Sequence: p.Sequence,
			Ax:       p.Sample.Ax,
			Ay:       p.Sample.Ay,
			Az:       p.Sample.Az,
			Gx:       p.Sample.Gx,
			Gy:       p.Sample.Gy,
			Gz:       p.Sample.Gz,
			Marker:   p.Marker(),
		}
		subMu.Lock()
		for _, ch := range subscribers {
			select {
			case ch <- view:
			default: // slow client, drop the sample
			}
		}
		subMu.Unlock()
	})
	streamToken.Wait()
	if streamToken.Error() != nil {
		return streamToken.Error()
	}
	log.Printf("web: subscribed to %s, %s, %s", cfg.TopicState, cfg.TopicResult, cfg.TopicStream)

	// 4) JSON API endpoint: latest result
	http.HandleFunc("/api/result", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveResult && !recording {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		view := lastResult
		view.Recording = recording
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(view); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 5) Websocket endpoint: live sample stream
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}

		ch := make(chan sampleView, 64)
		subMu.Lock()
		subscribers[conn] = ch
		subMu.Unlock()
		log.Printf("web: websocket client connected (%s)", r.RemoteAddr)

		defer func() {
			subMu.Lock()
			delete(subscribers, conn)
			subMu.Unlock()
			conn.Close()
		}()

		for view := range ch {
			if err := conn.WriteJSON(view); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	})

	// 6) Static files from ./web as the root
	http.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
