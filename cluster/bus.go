package cluster

// Device-local broadcast channel. Every window keeps one persistent
// websocket to the hub process; a published message is delivered to all
// subscribers of its topic except the sender. Delivery is at-most-once,
// nothing is replayed across reconnects.

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

const (
	TopicPlayer       = "player"
	TopicPresentation = "presentation"
)

type Message struct {
	WindowID string          `json:"window_id"`
	Topic    string          `json:"topic"`
	Command  string          `json:"command"`
	Content  json.RawMessage `json:"content,omitempty"`
}

type Bus struct {
	hubUrl    string
	authToken string
	windowID  string
	topics    []string

	conn *websocket.Conn

	outgoingChan  chan Message
	incomingChan  chan Message
	interruptChan chan interface{}
}

func NewBus(hubUrl, authToken, windowID string, topics []string) *Bus {
	return &Bus{
		hubUrl:    hubUrl,
		authToken: authToken,
		windowID:  windowID,
		topics:    topics,

		// don't create channels with 0 buffer size
		outgoingChan:  make(chan Message, 10),
		incomingChan:  make(chan Message, 10),
		interruptChan: make(chan interface{}, 1),
	}
}

func (this *Bus) Connect() error {
	addr := fmt.Sprint("ws://", this.hubUrl, "/ws")

	hdr := make(http.Header)
	hdr.Add("auth_token", this.authToken)
	hdr.Add("window_id", this.windowID)
	hdr.Add("topics", strings.Join(this.topics, ","))

	log.Println("connecting to hub at", addr)
	conn, _, err := websocket.DefaultDialer.Dial(addr, hdr)
	if err != nil {
		return err
	}
	this.conn = conn

	// receive messages
	go func() {
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				log.Println("bus: failed to read msg:", err)
				close(this.incomingChan)
				return
			}
			this.incomingChan <- msg
		}
	}()

	// send messages
	go func() {
		for {
			select {
			case msg := <-this.outgoingChan:
				if err := conn.WriteJSON(msg); err != nil {
					log.Println("bus: failed to send message err:", err)
					return
				}

			case <-this.interruptChan:
				if err := conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
					log.Println("bus: failed to close conn err:", err)
				}
				conn.Close()
				return
			}
		}
	}()

	return nil
}

// Publish is fire-and-forget; there is no acknowledgment that any
// window applied the command.
func (this *Bus) Publish(topic, command string, content interface{}) error {
	b, err := json.Marshal(content)
	if err != nil {
		return err
	}
	this.outgoingChan <- Message{
		WindowID: this.windowID,
		Topic:    topic,
		Command:  command,
		Content:  b,
	}
	return nil
}

func (this *Bus) Incoming() <-chan Message {
	return this.incomingChan
}

func (this *Bus) Close() {
	select {
	case this.interruptChan <- true:
	default:
	}
}
