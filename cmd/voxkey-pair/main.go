// Command voxkey-pair pairs a BLE hardware button with this machine.
// It scans for buttons, performs the ECDH key exchange with the chosen
// one, and saves the device id and derived key to the config file.
//
// Usage:
//
//	voxkey-pair [--config path] [--timeout 10s]
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"voxkey/internal/ble"
	"voxkey/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/voxkey/config.yaml)")
	scanTimeout := flag.Duration("timeout", 10*time.Second, "how long to scan for buttons")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg := loadOrDefault(path)

	adapter := ble.NewCoreBluetoothAdapter()

	fmt.Printf("Scanning for buttons (%s)...\n", *scanTimeout)
	devices, err := ble.ScanForDevices(adapter, *scanTimeout)
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	if len(devices) == 0 {
		log.Fatal("no buttons found; make sure the button is in pairing mode")
	}

	for i, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  [%d] %s  %s  RSSI %d\n", i+1, name, d.MAC, d.RSSI)
	}
	fmt.Printf("Pair with [1-%d]: ", len(devices))

	var choice int
	fmt.Scanln(&choice)
	if choice < 1 || choice > len(devices) {
		log.Fatalf("invalid choice %d", choice)
	}
	device := devices[choice-1]

	fmt.Printf("Pairing with %s...\n", device.MAC)
	result, err := ble.Pair(adapter, device.MAC, ble.DefaultPairOptions())
	if err != nil {
		log.Fatalf("pairing: %v", err)
	}

	cfg.Button.Enabled = true
	cfg.Button.DeviceMAC = result.DeviceMAC
	cfg.Button.Key = hex.EncodeToString(result.SharedSecret)
	if err := cfg.Save(path); err != nil {
		log.Fatalf("saving config: %v", err)
	}

	fmt.Printf("Paired! Button saved to %s\n", path)
	fmt.Println("Start voxkey to use it.")
}

// loadOrDefault loads the config if it exists, otherwise starts from
// defaults so pairing works before first run.
func loadOrDefault(path string) *config.Config {
	if _, err := os.Stat(path); err != nil {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading %s: %v", path, err)
	}
	return cfg
}
