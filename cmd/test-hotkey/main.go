// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press Ctrl+Shift+D to see toggle events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"voxkey/internal/trigger"
)

func main() {
	keys := []string{"ctrl", "shift", "d"}
	fmt.Println("Listening for Ctrl+Shift+D toggles...")
	fmt.Println("Press Ctrl+C to exit.")

	listener := trigger.NewHotkeyListener(keys)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			fmt.Printf(">>> toggle from %s at %s\n", ev.Source, ev.At.Format("15:04:05.000"))
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
