package bacnet

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
)

// runPoller refreshes present-value-class properties on the poll interval
// and re-solicits peers on the Who-Is interval. Polling keeps values
// fresh on peers whose COV support is missing or flaky; re-solicitation
// catches devices that boot after us.
func (b *Bridge) runPoller() {
	defer b.loops.Done()

	pollTicker := time.NewTicker(b.cfg.PollInterval)
	defer pollTicker.Stop()

	whoisTicker := time.NewTicker(b.cfg.WhoIsInterval)
	defer whoisTicker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-pollTicker.C:
			b.pollAll()
		case <-whoisTicker.C:
			b.solicit()
		}
	}
}

// pollAll submits one read-many per device (chunked to the per-request
// object limit) covering every allow-listed object the registry knows.
func (b *Bridge) pollAll() {
	devices := b.registry.ListDevices()

	batches := 0
	for _, dev := range devices {
		objects := make([]bacnet.ObjectID, 0, len(dev.Objects))
		for id := range dev.Objects {
			if id.IsDevice() || !b.cfg.allowsType(id.Type) {
				continue
			}
			objects = append(objects, id)
		}
		if len(objects) == 0 {
			continue
		}

		for start := 0; start < len(objects); start += maxObjectsPerRead {
			end := start + maxObjectsPerRead
			if end > len(objects) {
				end = len(objects)
			}

			chunk := objects[start:end]
			specs := make([]bacnet.ReadAccessSpec, 0, len(chunk))
			for _, obj := range chunk {
				specs = append(specs, bacnet.ReadAccessSpec{
					Object:     obj,
					Properties: bacnet.Refs(b.cfg.PollProperties...),
				})
			}

			b.submitReadMany(&readBatch{
				id:     uuid.NewString(),
				addr:   dev.Address,
				specs:  specs,
				stage:  stageInitial,
				source: device.ValueHistorySourcePoll,
			})
			batches++
		}
	}

	if batches > 0 {
		b.logger.Debug("poll cycle submitted", "batches", batches, "devices", len(devices))
	}
}
