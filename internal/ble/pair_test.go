package ble

import (
	"bytes"
	"testing"
	"time"

	blecrypto "voxkey/internal/ble/crypto"
)

func TestScanForDevices(t *testing.T) {
	want := []Device{{Name: "voxkey-btn", MAC: "AA:BB", RSSI: -40}}
	adapter := newMockAdapter(want)

	devices, err := ScanForDevices(adapter, time.Second)
	if err != nil {
		t.Fatalf("ScanForDevices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].MAC != "AA:BB" {
		t.Errorf("devices = %+v, want %+v", devices, want)
	}
}

// TestPairDerivesSharedKey scripts the firmware side of the exchange:
// on receiving the host's compressed public key it answers with its own,
// and both sides must end up with the same AES key.
func TestPairDerivesSharedKey(t *testing.T) {
	devicePriv, devicePub, err := blecrypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	deviceKeyCh := make(chan []byte, 1)
	adapter := newMockAdapter(nil)
	adapter.onConnect = func(conn *mockConnection) {
		conn.pairChar.onWrite = func(hostKeyBytes []byte) {
			hostPub, err := blecrypto.ParseCompressedPublicKey(hostKeyBytes)
			if err != nil {
				t.Errorf("firmware: parse host key: %v", err)
				return
			}
			secret, err := blecrypto.DeriveSharedSecret(devicePriv, hostPub)
			if err != nil {
				t.Errorf("firmware: derive secret: %v", err)
				return
			}
			key, err := blecrypto.DeriveEncryptionKey(secret)
			if err != nil {
				t.Errorf("firmware: derive key: %v", err)
				return
			}
			deviceKeyCh <- key
			conn.pairChar.SimulateNotification(blecrypto.CompressPublicKey(devicePub))
		}
	}

	result, err := Pair(adapter, "AA:BB", PairOptions{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if result.DeviceMAC != "AA:BB" {
		t.Errorf("DeviceMAC = %q, want %q", result.DeviceMAC, "AA:BB")
	}
	if len(result.SharedSecret) != 32 {
		t.Fatalf("SharedSecret length = %d, want 32", len(result.SharedSecret))
	}

	deviceKey := <-deviceKeyCh
	if !bytes.Equal(result.SharedSecret, deviceKey) {
		t.Error("host and firmware derived different keys")
	}

	// The derived key must actually open a press sealed by the firmware.
	packet, err := sealPress(deviceKey, 1, EventPress)
	if err != nil {
		t.Fatalf("sealPress() error = %v", err)
	}
	if _, _, err := openPress(result.SharedSecret, packet); err != nil {
		t.Errorf("openPress() with paired key error = %v", err)
	}
}

func TestPairTimesOutWithoutReply(t *testing.T) {
	adapter := newMockAdapter(nil)

	_, err := Pair(adapter, "AA:BB", PairOptions{Timeout: 100 * time.Millisecond})
	if err == nil {
		t.Fatal("Pair() should time out when the button never replies")
	}
}
