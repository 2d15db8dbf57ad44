package bacnet

import (
	"errors"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
)

// HandleCOV ingests a change-of-value notification: each reported value
// is decoded by its declared datatype and merged under the monitored
// object of the initiating device.
//
// The returned disposition answers confirmed notifications. It is a
// process-wide setting (default: acknowledge everything), not a
// per-notification decision; reject and abort exist for installations
// that need to refuse confirmed traffic wholesale.
func (b *Bridge) HandleCOV(n bacnet.COVNotification) bacnet.Disposition {
	b.mu.Lock()
	defer b.mu.Unlock()

	props := b.decodeValues(n.Object, n.Values)
	if len(props) == 0 {
		b.logger.Debug("notification carried no decodable values",
			"object", n.Object.String(),
			"device", n.Device.String())
		return b.cfg.COVDisposition
	}

	if err := b.registry.Merge(n.Device, n.Object, props); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			b.logger.Warn("dropping notification from unknown device",
				"device", n.Device.String(),
				"object", n.Object.String())
		} else {
			b.logger.Error("notification merge failed",
				"device", n.Device.String(),
				"error", err.Error())
		}
		return b.cfg.COVDisposition
	}

	b.logger.Debug("notification merged",
		"device", n.Device.String(),
		"object", n.Object.String(),
		"process_id", n.ProcessID,
		"confirmed", n.Confirmed,
		"properties", len(props))

	b.afterMerge(n.Device, n.Object, props, device.ValueHistorySourceCOV)
	return b.cfg.COVDisposition
}
