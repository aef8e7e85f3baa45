package ble

import (
	"context"
	"fmt"
	"time"

	blecrypto "voxkey/internal/ble/crypto"
)

// PairResult contains the data needed to save to config after pairing.
type PairResult struct {
	DeviceMAC    string
	SharedSecret []byte // 32-byte derived encryption key
}

// PairOptions configures pairing behavior.
type PairOptions struct {
	Timeout time.Duration // how long to wait for the button's public key
}

// DefaultPairOptions returns sensible defaults for production use.
func DefaultPairOptions() PairOptions {
	return PairOptions{
		Timeout: 10 * time.Second,
	}
}

// ScanForDevices scans for buttons advertising the voxkey service.
func ScanForDevices(adapter Adapter, timeout time.Duration) ([]Device, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	devices, err := adapter.Scan(ctx, ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	return devices, nil
}

// Pair performs the ECDH key exchange with the specified button. The
// host writes its compressed public key to the pairing characteristic;
// the firmware answers with its own 33-byte compressed key as a
// notification on the same characteristic. Both sides then derive the
// press encryption key.
func Pair(adapter Adapter, deviceMAC string, opts PairOptions) (*PairResult, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	conn, err := adapter.Connect(ctx, deviceMAC)
	if err != nil {
		return nil, fmt.Errorf("ble: connect for pairing: %w", err)
	}
	defer func() { _ = conn.Disconnect() }()

	pairChar, err := conn.DiscoverCharacteristic(ServiceUUID, PairCharUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: discover pairing characteristic: %w", err)
	}

	// Subscribe before writing so the firmware's reply cannot be missed.
	peerPubKeyCh := make(chan []byte, 1)
	if err := pairChar.Subscribe(func(data []byte) {
		if len(data) != 33 {
			return
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		select {
		case peerPubKeyCh <- cp:
		default:
		}
	}); err != nil {
		return nil, fmt.Errorf("ble: subscribe to pairing replies: %w", err)
	}

	// Generate our ECDH keypair
	privKey, pubKey, err := blecrypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	compressed := blecrypto.CompressPublicKey(pubKey)
	if err := pairChar.Write(compressed); err != nil {
		return nil, fmt.Errorf("ble: write public key: %w", err)
	}

	select {
	case peerPubKeyBytes := <-peerPubKeyCh:
		peerPubKey, err := blecrypto.ParseCompressedPublicKey(peerPubKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("ble: parse peer public key: %w", err)
		}

		sharedSecret, err := blecrypto.DeriveSharedSecret(privKey, peerPubKey)
		if err != nil {
			return nil, err
		}

		encKey, err := blecrypto.DeriveEncryptionKey(sharedSecret)
		if err != nil {
			return nil, err
		}

		return &PairResult{
			DeviceMAC:    deviceMAC,
			SharedSecret: encKey,
		}, nil

	case <-time.After(opts.Timeout):
		return nil, fmt.Errorf("ble: pairing timed out waiting for peer public key")
	}
}
