// Package ble connects to a paired hardware button (an ESP32 running the
// companion firmware) over Bluetooth Low Energy. The button notifies the
// host of presses through an encrypted characteristic; each press acts
// as a dictation toggle.
package ble

import "context"

// Button service UUIDs.
const (
	ServiceUUID   = "7a4e0001-93c4-4b1a-8e5d-f20a31c88302"
	PressCharUUID = "7a4e0002-93c4-4b1a-8e5d-f20a31c88302"
	PairCharUUID  = "7a4e0003-93c4-4b1a-8e5d-f20a31c88302"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name string
	MAC  string
	RSSI int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers BLE peripherals advertising the given service UUID.
	// Returns discovered devices until ctx is cancelled or timeout.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// Connect establishes a connection to the device with the given MAC address.
	Connect(ctx context.Context, mac string) (Connection, error)
}
