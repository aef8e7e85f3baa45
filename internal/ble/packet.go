package ble

import (
	"encoding/binary"
	"fmt"

	blecrypto "voxkey/internal/ble/crypto"
)

// Press packet wire format, as notified by the button firmware:
//
//	iv(12) || tag(16) || ciphertext
//
// The plaintext is a 5-byte record: uint32 big-endian press counter
// followed by one event byte. The counter is monotonic per pairing and
// lets the host drop replayed or re-delivered notifications.
const (
	ivSize        = 12
	tagSize       = 16
	plaintextSize = 5

	// EventPress is the only event the firmware currently sends.
	EventPress byte = 0x01
)

// sealPress builds an encrypted press packet. The daemon never sends
// presses itself; this is the firmware side of the codec, used by the
// tests and kept next to openPress so the two cannot drift.
func sealPress(key []byte, counter uint32, event byte) ([]byte, error) {
	plaintext := make([]byte, plaintextSize)
	binary.BigEndian.PutUint32(plaintext, counter)
	plaintext[4] = event

	iv, ciphertext, tag, err := blecrypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("ble: seal press: %w", err)
	}

	packet := make([]byte, 0, ivSize+tagSize+len(ciphertext))
	packet = append(packet, iv...)
	packet = append(packet, tag...)
	packet = append(packet, ciphertext...)
	return packet, nil
}

// openPress decrypts and parses a press packet.
func openPress(key, packet []byte) (counter uint32, event byte, err error) {
	if len(packet) < ivSize+tagSize+plaintextSize {
		return 0, 0, fmt.Errorf("ble: press packet too short: %d bytes", len(packet))
	}

	iv := packet[:ivSize]
	tag := packet[ivSize : ivSize+tagSize]
	ciphertext := packet[ivSize+tagSize:]

	plaintext, err := blecrypto.Decrypt(key, iv, ciphertext, tag)
	if err != nil {
		return 0, 0, fmt.Errorf("ble: open press: %w", err)
	}
	if len(plaintext) != plaintextSize {
		return 0, 0, fmt.Errorf("ble: press plaintext is %d bytes, want %d", len(plaintext), plaintextSize)
	}

	return binary.BigEndian.Uint32(plaintext), plaintext[4], nil
}
