package audio

import (
	"errors"

	"github.com/gen2brain/malgo"
)

// ErrNoDevice is returned when no capture device exists at all. There is
// no recording without a device.
var ErrNoDevice = errors.New("audio: no capture device available")

// DeviceInfo identifies one enumerated capture device. Name doubles as the
// persisted device id; malgo's raw binary id is kept for device init.
type DeviceInfo struct {
	Name string

	id malgo.DeviceID
}

// enumerate lists the capture devices known to the malgo context.
func enumerate(ctx *malgo.AllocatedContext) ([]DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{Name: info.Name(), id: info.ID})
	}
	return devices, nil
}

// selectDevice picks the device matching the requested id, falling back to
// the first enumerated device when the requested one is missing. The
// returned bool reports whether a fallback occurred. An empty requested id
// means "first device" and is not a fallback.
func selectDevice(devices []DeviceInfo, requested string) (DeviceInfo, bool, error) {
	if len(devices) == 0 {
		return DeviceInfo{}, false, ErrNoDevice
	}
	if requested == "" {
		return devices[0], false, nil
	}
	for _, d := range devices {
		if d.Name == requested {
			return d, false, nil
		}
	}
	return devices[0], true, nil
}
