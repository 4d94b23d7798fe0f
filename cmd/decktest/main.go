package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"faderbridge/lib/loop"
	"faderbridge/lib/mixer"
	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
	"faderbridge/lib/streamdeck"
)

type printer struct{}

func (printer) UpdateRemoteFaderState(fader int, level float64) {
	fmt.Printf("Fader %d level %.0f\n", fader+1, level)
}

func (printer) UpdateRemoteAuxPanels() {}

// decktest lays faders out on a Stream Deck with no mixer behind them.
func main() {
	dev, err := streamdeck.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	m := dev.Model()
	fmt.Printf("Connected to: Stream Deck %s (serial: %s)\n", m.Name, dev.SerialNumber())

	dev.SetBrightness(80)
	if err := dev.ClearKeys(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lp := loop.New(0)
	lp.Start()
	defer lp.Close()

	proto, _ := protocol.Resolve(protocol.DefaultPreset)
	store := state.NewStore(state.New(state.Layout{Faders: m.KeyCols}))
	hub := mixer.NewHub(store, proto, lp, nil)
	panel := streamdeck.NewPanel(dev, hub, store, proto, 0, nil)
	hub.AddRemote(panel)
	hub.AddRemote(printer{})
	if err := panel.Refresh(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	events := make(chan streamdeck.InputEvent, 64)
	go func() {
		if err := dev.ReadInput(events); err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev := <-events:
			switch {
			case ev.Key != nil:
				fmt.Printf("Key %d pressed=%v\n", ev.Key.Key, ev.Key.Pressed)
			case ev.Encoder != nil:
				fmt.Printf("Encoder %d pressed=%v delta=%d\n", ev.Encoder.Encoder, ev.Encoder.Pressed, ev.Encoder.Delta)
			}
			panel.Handle(ev)
		case <-sig:
			fmt.Println()
			return
		}
	}
}
