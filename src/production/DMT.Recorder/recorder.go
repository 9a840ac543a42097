package recorder

import (
	"context"

	config "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Config"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
	interfaces "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Repository/Interfaces"
)

// Recorder decides whether an inbound reading overwrites the existing record
// for its device or is appended as a new time-series point. Both transport
// adapters hand their normalized readings to one shared Recorder.
//
// The default upsert mode keeps at most one live row per device, matching
// the behavior the mobile app was built against. Append mode is available
// for deployments that want true history behind the charts.
type Recorder struct {
	mode     string
	readings interfaces.ReadingRepository
}

func New(mode string, readings interfaces.ReadingRepository) *Recorder {
	return &Recorder{mode: mode, readings: readings}
}

// Record persists the reading according to the configured write mode.
func (r *Recorder) Record(ctx context.Context, rd dmtmodels.Reading) error {
	if r.mode == config.WriteModeAppend {
		return r.readings.InsertReading(ctx, rd)
	}
	return r.readings.UpsertReading(ctx, rd)
}

// Mode reports the configured write mode.
func (r *Recorder) Mode() string {
	return r.mode
}
