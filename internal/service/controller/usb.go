package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/alarm-controller/internal/logger"
)

// resetUSBDevice power-cycles a USB device using the sysfs de/reauthorization
// method. Crude, but it reliably brings the keypad back after a wedge.
func resetUSBDevice(ctx context.Context, device string) error {
	path := filepath.Join("/sys/bus/usb/devices", device, "authorized")

	if err := os.WriteFile(path, []byte("0"), 0); err != nil {
		return fmt.Errorf("deauthorize USB device %s: %w", device, err)
	}

	if err := os.WriteFile(path, []byte("1"), 0); err != nil {
		return fmt.Errorf("reauthorize USB device %s: %w", device, err)
	}

	logger.Debugf(ctx, "Reset USB device: %s", path)

	return nil
}
