// Package main runs a demo WebSocket client that follows a colony run's progress.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/websocket"

	"antroute/internal/model"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Start an async colony run, from a TSPLIB file when one is given
	sreq := model.SolveRequest{Algorithm: "aco", Async: true, Seed: 42}
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatal(err)
		}
		sreq.VRP = string(b)
	} else {
		sreq.Instance = demoInstance(40)
	}
	body, _ := json.Marshal(sreq)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", "ws-demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("solve: HTTP %d", resp.StatusCode)
	}
	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", run.ID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/" + run.ID + "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	for {
		var evt model.RunEvent
		if err := c.ReadJSON(&evt); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("read: %v", err)
			}
			return
		}
		switch {
		case evt.Run != nil && evt.Run.Cost != nil:
			log.Printf("WS <- %s: %s cost=%.2f routes=%d", evt.Type, evt.Run.Status, *evt.Run.Cost, len(evt.Run.Routes))
		case evt.Run != nil:
			log.Printf("WS <- %s: %s %s", evt.Type, evt.Run.Status, evt.Run.Error)
		case evt.BestCost != nil:
			log.Printf("WS <- %s: iteration %d best=%.2f improved=%v", evt.Type, evt.Iteration, *evt.BestCost, evt.Improved)
		default:
			log.Printf("WS <- %s: iteration %d", evt.Type, evt.Iteration)
		}
	}
}

// demoInstance scatters n customers around a central depot.
func demoInstance(n int) *model.InstanceIn {
	rng := rand.New(rand.NewSource(1))
	in := &model.InstanceIn{Name: "ws-demo", Capacity: 50, Nodes: []model.NodeIn{{ID: 0, X: 50, Y: 50}}}
	for i := 1; i <= n; i++ {
		in.Nodes = append(in.Nodes, model.NodeIn{ID: i, X: rng.Float64() * 100, Y: rng.Float64() * 100, Demand: float64(1 + rng.Intn(9))})
	}
	return in
}
