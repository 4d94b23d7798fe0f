package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"faderbridge/lib/loop"
	"faderbridge/lib/mixer"
	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
	"faderbridge/lib/xtouch"
)

// xtouchtest drives an extender against faders with no mixer behind them,
// printing every decoded event.
func main() {
	defer midi.CloseDriver()

	inPort, err := xtouch.FindInPort("x-touch")
	if err != nil {
		fmt.Println("Available MIDI input ports:")
		for _, p := range midi.GetInPorts() {
			fmt.Printf("  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}

	outPort, err := xtouch.FindOutPort("x-touch")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := xtouch.NewOutput(outPort, xtouch.DeviceIDExtender)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lp := loop.New(0)
	lp.Start()
	defer lp.Close()

	proto, _ := protocol.Resolve(protocol.DefaultPreset)
	store := state.NewStore(state.New(state.Layout{Faders: xtouch.Strips}))
	hub := mixer.NewHub(store, proto, lp, nil)
	panel := xtouch.NewPanel(out, hub, store, proto, 0, nil)
	hub.AddRemote(panel)
	if err := panel.Refresh(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Listening on: %s\n", inPort)

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		if event := xtouch.Decode(msg); event != nil {
			fmt.Println(event)
		}
		panel.Receive(msg, timestampms)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}
