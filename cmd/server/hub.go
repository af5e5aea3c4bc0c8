package main

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"warband/sim/internal/geom"
	"warband/sim/internal/sim"
	"warband/sim/internal/unit"
)

const (
	tickRate  = 20 // simulation frames per second
	writeWait = 10 * time.Second
)

type clientMessage struct {
	Type string  `json:"type"`
	DX   float64 `json:"dx"`
	DZ   float64 `json:"dz"`
	Kind string  `json:"kind"`
}

type unitSnapshot struct {
	ID         string  `json:"id"`
	Definition string  `json:"definition"`
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Rotation   float64 `json:"rotation"`
	Health     float64 `json:"health"`
	MaxHealth  float64 `json:"maxHealth"`
	Stamina    float64 `json:"stamina"`
	State      string  `json:"state,omitempty"`
	Attacking  bool    `json:"attacking"`
	Stunned    bool    `json:"stunned"`
}

type stateMessage struct {
	Type       string         `json:"type"`
	Tick       uint64         `json:"tick"`
	ServerTime int64          `json:"serverTime"`
	Units      []unitSnapshot `json:"units"`
}

type joinMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

type playerIntent struct {
	dx, dz float64
}

// Hub owns the manager and serializes all simulation access under one mutex:
// the tick loop, input intake, and join/leave all synchronize here.
type Hub struct {
	mu          sync.Mutex
	manager     *sim.Manager
	playerDef   string
	subscribers map[string]*subscriber
	intents     map[string]playerIntent
	elapsed     float64
	defeated    []string
}

func newHub(manager *sim.Manager, playerDef string) *Hub {
	return &Hub{
		manager:     manager,
		playerDef:   playerDef,
		subscribers: make(map[string]*subscriber),
		intents:     make(map[string]playerIntent),
	}
}

// onDefeat queues defeated AI units for removal after the frame's deferred
// tasks finish. Player units stay down but registered.
func (h *Hub) onDefeat(_, target *unit.Unit) {
	if target == nil || target.IsPlayer() {
		return
	}
	h.defeated = append(h.defeated, target.ID)
}

// Join creates the player unit for a new connection.
func (h *Hub) Join(conn *websocket.Conn) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, err := h.manager.CreateUnit(h.playerDef, geom.Vec3{}, nil)
	if err != nil {
		return "", err
	}
	h.subscribers[u.ID] = &subscriber{conn: conn}
	h.intents[u.ID] = playerIntent{}
	return u.ID, nil
}

// Leave tears down the connection's unit and subscription.
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
	delete(h.intents, id)
	h.manager.RemoveUnit(id)
}

// sendTo writes one message to a single subscriber, if still connected.
func (h *Hub) sendTo(id string, v any) {
	h.mu.Lock()
	sub := h.subscribers[id]
	h.mu.Unlock()
	if sub == nil {
		return
	}
	if err := sub.send(v); err != nil {
		log.Printf("send to %s failed: %v", id, err)
	}
}

// UpdateIntent records the latest movement input for a player.
func (h *Hub) UpdateIntent(id string, dx, dz float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.intents[id]; !ok {
		return
	}
	h.intents[id] = playerIntent{dx: dx, dz: dz}
}

// Attack routes a player's attack input through the combat gate.
func (h *Hub) Attack(id, kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u := h.manager.GetUnit(id)
	if u == nil {
		return
	}
	if kind == string(unit.AttackHeavy) {
		h.manager.PerformHeavyAttack(u, h.elapsed)
		return
	}
	h.manager.PerformLightAttack(u, h.elapsed)
}

// Run drives the fixed-rate frame loop until the context is cancelled.
func (h *Hub) Run(done <-chan struct{}) error {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-done:
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}
			last = now
			h.step(dt)
		}
	}
}

func (h *Hub) step(dt float64) {
	h.mu.Lock()
	h.elapsed += dt

	for id, intent := range h.intents {
		u := h.manager.GetUnit(id)
		if u == nil {
			continue
		}
		dir := geom.Vec3{X: intent.dx, Z: intent.dz}.Normalized()
		h.manager.SetUnitVelocity(u, dir.Scale(u.Speed))
		if !dir.IsZero() {
			u.Rotation = geom.Yaw(dir)
		}
	}

	h.manager.Update(dt, h.elapsed)
	h.driveNPCAttacks()
	h.reapDefeated()

	msg := h.snapshotLocked()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.send(msg); err != nil {
			log.Printf("broadcast failed: %v", err)
		}
	}
}

// driveNPCAttacks lets AI units in the attack state swing through the same
// combat gate players use; the gate's cooldown and stamina checks pace them.
func (h *Hub) driveNPCAttacks() {
	for _, u := range h.manager.AllUnits() {
		if u.IsPlayer() || u.Behavior == nil || !u.Behavior.Attacking {
			continue
		}
		if h.manager.CanAttack(u, unit.AttackLight, h.elapsed) {
			h.manager.PerformLightAttack(u, h.elapsed)
		}
	}
}

func (h *Hub) reapDefeated() {
	for _, id := range h.defeated {
		h.manager.RemoveUnit(id)
	}
	h.defeated = h.defeated[:0]
}

func (h *Hub) snapshotLocked() stateMessage {
	units := h.manager.AllUnits()
	snapshots := make([]unitSnapshot, 0, len(units))
	for _, u := range units {
		snap := unitSnapshot{
			ID:        u.ID,
			Type:      string(u.Kind()),
			X:         u.Position.X,
			Y:         u.Position.Y,
			Z:         u.Position.Z,
			Rotation:  u.Rotation,
			Health:    u.Health,
			MaxHealth: u.MaxHealth,
			Stamina:   u.Combat.Stamina,
			Attacking: u.Combat.Attacking,
			Stunned:   u.Combat.Stunned,
		}
		if u.Def != nil {
			snap.Definition = u.Def.ID
		}
		if u.Behavior != nil {
			snap.State = string(u.Behavior.State)
		}
		snapshots = append(snapshots, snap)
	}
	return stateMessage{
		Type:       "state",
		Tick:       h.manager.Tick(),
		ServerTime: time.Now().UnixMilli(),
		Units:      snapshots,
	}
}
