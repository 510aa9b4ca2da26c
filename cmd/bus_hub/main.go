package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/chordcast/chordcast-backend/cluster"
)

func main() {
	var url string
	var authToken string
	var staleMillis int
	flag.StringVar(&url, "url", "127.0.0.1:9090", "Address of the bus hub")
	flag.StringVar(&authToken, "authtoken", "secrettoken", "Auth token")
	flag.IntVar(&staleMillis, "stale", 3000, "Staleness threshold for the liveness record (ms)")
	flag.Parse()

	hub := cluster.NewHub(authToken)

	go hub.SweepStaleLiveness(
		time.Duration(staleMillis)*time.Millisecond,
		time.Second*1,
	)

	fmt.Println("starting at url", url)
	fmt.Println("auth token", authToken)
	if err := http.ListenAndServe(url, hub.Handler()); err != nil {
		log.Fatal("cannot start hub err:", err)
	}
}
