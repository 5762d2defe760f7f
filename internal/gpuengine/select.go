package gpuengine

import "fmt"

// DeviceInfo describes one enumerated OpenCL device, enough to score and
// pick among several.
type DeviceInfo struct {
	Index           int
	Name            string
	Vendor          string
	MaxComputeUnits int
}

// score ranks a device by its reported compute-unit count: more is better,
// mirroring the original's device.probe()-driven selection.
func (d DeviceInfo) score() int { return d.MaxComputeUnits }

// SelectDevice probes every available platform's devices and opens the
// highest-scoring one.
func SelectDevice() (Device, error) {
	infos, err := ListDevices()
	if err != nil {
		return nil, fmt.Errorf("gpuengine: enumerate devices: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("gpuengine: no OpenCL device found")
	}

	best := infos[0]
	for _, d := range infos[1:] {
		if d.score() > best.score() {
			best = d
		}
	}
	return OpenDevice(best.Index)
}
