package source

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gogpu/glowmap"
)

// Subject suffixes under the stream prefix.
const (
	SnapshotSubject = "snapshot"
	TouchedSubject  = "touched"
)

// TouchMessage is the payload of a cell-touched notification.
type TouchMessage struct {
	Period int `json:"period"`
	Tier   int `json:"tier"`
}

// StreamHandler receives stream messages. Callbacks run on NATS
// goroutines; hosts forward them to their event loop.
type StreamHandler struct {
	OnSnapshot func(*glowmap.Snapshot)
	OnTouch    func(period, tier int)
	OnError    func(error)
}

// Connect opens a NATS connection that reconnects forever and logs its
// state changes.
func Connect(url, name string) (*nats.Conn, error) {
	log := glowmap.Logger()
	options := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("source: nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("source: nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("source: nats connection closed")
		}),
	}

	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("source: connecting to nats: %w", err)
	}
	return nc, nil
}

// Stream is a set of subscriptions on <prefix>.snapshot and
// <prefix>.touched.
type Stream struct {
	prefix string
	subs   []*nats.Subscription
}

// Subscribe subscribes h to the snapshot and touched subjects under
// prefix.
func Subscribe(nc *nats.Conn, prefix string, h StreamHandler) (*Stream, error) {
	s := &Stream{prefix: prefix}

	snapSub, err := nc.Subscribe(prefix+"."+SnapshotSubject, func(msg *nats.Msg) {
		h.handleSnapshot(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("source: subscribing to snapshots: %w", err)
	}
	s.subs = append(s.subs, snapSub)

	touchSub, err := nc.Subscribe(prefix+"."+TouchedSubject, func(msg *nats.Msg) {
		h.handleTouch(msg.Data)
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("source: subscribing to touches: %w", err)
	}
	s.subs = append(s.subs, touchSub)

	glowmap.Logger().Info("source: stream subscribed", "prefix", prefix)
	return s, nil
}

// Close unsubscribes from all subjects.
func (s *Stream) Close() error {
	var first error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && first == nil {
			first = err
		}
	}
	s.subs = nil
	return first
}

// PublishTouch announces that a cell's counts changed.
func PublishTouch(nc *nats.Conn, prefix string, period, tier int) error {
	data, err := json.Marshal(TouchMessage{Period: period, Tier: tier})
	if err != nil {
		return err
	}
	return nc.Publish(prefix+"."+TouchedSubject, data)
}

func (h StreamHandler) handleSnapshot(data []byte) {
	s, err := Decode(data, JSON)
	if err != nil {
		h.fail(fmt.Errorf("source: snapshot message: %w", err))
		return
	}
	if h.OnSnapshot != nil {
		h.OnSnapshot(s)
	}
}

func (h StreamHandler) handleTouch(data []byte) {
	var m TouchMessage
	if err := json.Unmarshal(data, &m); err != nil {
		h.fail(fmt.Errorf("source: touched message: %w", err))
		return
	}
	if h.OnTouch != nil {
		h.OnTouch(m.Period, m.Tier)
	}
}

func (h StreamHandler) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
		return
	}
	glowmap.Logger().Warn("source: dropping stream message", "err", err)
}
