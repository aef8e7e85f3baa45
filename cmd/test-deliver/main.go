// Command test-deliver is a manual test for text delivery.
// It waits 3 seconds, then types or pastes test text.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-deliver [--method type|paste]
package main

import (
	"flag"
	"fmt"
	"time"

	"voxkey/internal/deliver"
)

func main() {
	method := flag.String("method", "type", "delivery method: type or paste")
	flag.Parse()

	text := "Hello from voxkey!"

	fmt.Printf("Will deliver %q using %q method in 3 seconds...\n", text, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	d := deliver.NewDispatcher(*method)
	outcome, err := d.Deliver(text)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("\nDone (%s)!\n", outcome)
}
