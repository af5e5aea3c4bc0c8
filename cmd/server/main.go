package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"warband/sim/internal/geom"
	"warband/sim/internal/sim"
	"warband/sim/internal/unit"
	"warband/sim/logging"
	"warband/sim/logging/sinks"
)

const playerDefinitionID = "player"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func main() {
	var (
		addr      = flag.String("addr", ":8080", "listen address")
		configDir = flag.String("config", "config", "directory holding world.yaml and units.yaml")
		seed      = flag.Int64("seed", 0, "AI random seed (0 = time-based)")
	)
	flag.Parse()

	if err := run(*addr, *configDir, *seed); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run(addr, configDir string, seed int64) error {
	worldCfg, err := sim.LoadWorldConfig(filepath.Join(configDir, "world.yaml"))
	if err != nil {
		return err
	}
	catalog, err := unit.LoadCatalog(filepath.Join(configDir, "units.yaml"))
	if err != nil {
		return err
	}

	router := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout, logging.ConsoleConfig{})},
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := router.Close(ctx); err != nil {
			log.Printf("logging shutdown: %v", err)
		}
	}()

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}

	var hub *Hub
	manager := sim.NewManager(sim.Options{
		World:     worldCfg,
		Publisher: router,
		RNG:       rng,
		OnDefeat: func(attacker, target *unit.Unit) {
			hub.onDefeat(attacker, target)
		},
	})
	defer manager.Dispose()

	for _, def := range catalog.Definitions {
		if err := manager.RegisterDefinition(def); err != nil {
			return err
		}
	}
	hub = newHub(manager, playerDefinitionID)

	if err := spawnWorld(manager, catalog); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx.Done())
	})
	g.Go(func() error {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// spawnWorld seeds the arena with every non-player definition in the catalog.
func spawnWorld(manager *sim.Manager, catalog *unit.Catalog) error {
	spots := []geom.Vec3{
		{X: 20, Z: 15}, {X: -18, Z: 22}, {X: 25, Z: -20}, {X: -22, Z: -16},
	}
	next := 0
	for _, def := range catalog.Definitions {
		if def.Type == unit.TypePlayer {
			continue
		}
		pos := spots[next%len(spots)]
		next++
		if _, err := manager.CreateUnit(def.ID, pos, nil); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}

	id, err := h.Join(conn)
	if err != nil {
		log.Printf("join rejected: %v", err)
		conn.WriteJSON(map[string]string{"type": "error", "reason": err.Error()})
		conn.Close()
		return
	}
	h.sendTo(id, joinMessage{Type: "joined", ID: id})

	go func() {
		defer func() {
			h.Leave(id)
			conn.Close()
		}()
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "input":
				h.UpdateIntent(id, msg.DX, msg.DZ)
			case "attack":
				h.Attack(id, msg.Kind)
			}
		}
	}()
}
