//go:build !cgo

package gpuengine

import "fmt"

// OpenDevice always fails when built without cgo: there is no way to talk
// to an OpenCL platform without the C bridge.
func OpenDevice(index int) (Device, error) {
	return nil, fmt.Errorf("gpuengine: built without cgo, no OpenCL device available")
}

// ListDevices reports no devices when built without cgo.
func ListDevices() ([]DeviceInfo, error) {
	return nil, nil
}
