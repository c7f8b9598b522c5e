package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"market-pipeline/src/models"

	"github.com/gorilla/websocket"
)

// Connects to a running pipeline's websocket feed and prints each snapshot.
// Useful for eyeballing the synthetic generator and the fan-out path without
// a frontend.

func main() {
	addr := flag.String("addr", "127.0.0.1:8090", "pipeline server address")
	symbols := flag.String("symbols", "", "comma separated symbol filter (empty = all)")
	flag.Parse()

	url := fmt.Sprintf("ws://%s/ws", *addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Printf("Dial %s failed: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", url)

	if *symbols != "" {
		cmd := models.MSubscribeCommand{
			Command: "subscribe",
			Symbols: strings.Split(*symbols, ","),
		}
		if err := conn.WriteJSON(cmd); err != nil {
			fmt.Printf("Subscribe failed: %v\n", err)
			os.Exit(1)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var snapshot models.MRateSnapshot
			if err := conn.ReadJSON(&snapshot); err != nil {
				fmt.Printf("Read failed: %v\n", err)
				return
			}
			printSnapshot(snapshot)
		}
	}()

	select {
	case <-quit:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	case <-done:
	}
}

// -----------------------------------------------------------------------------

func printSnapshot(snapshot models.MRateSnapshot) {
	fmt.Printf("[%s] %d rates (batches=%d flushed=%d)\n",
		snapshot.Type, len(snapshot.Rates),
		snapshot.Metrics.BatchesProcessed, snapshot.Metrics.CandlesFlushed)
	for _, rate := range snapshot.Rates {
		fmt.Printf("  %-12s last=%.2f bid=%.2f ask=%.2f high=%.2f low=%.2f chg=%.2f%%\n",
			rate.Symbol, rate.Last, rate.Bid, rate.Ask, rate.High, rate.Low, rate.PercentChange)
	}
}
