package dmtmodels

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Known measurement keys inside a Reading's values document.
const (
	MeasurementPH           = "ph"
	MeasurementConductivity = "conductivity"
	MeasurementWaterTemp    = "water_temp"
	MeasurementWaterLevel   = "water_level"
)

// KnownMeasurements lists the measurement fields that must be numeric when
// present. Anything else inside values passes through untouched.
var KnownMeasurements = []string{
	MeasurementPH,
	MeasurementConductivity,
	MeasurementWaterTemp,
	MeasurementWaterLevel,
}

// Reading is one normalized telemetry sample from a device. The persisted
// document is schema-flexible: fields the server does not know about are
// carried in Extra and stored alongside the typed ones.
type Reading struct {
	ID       primitive.ObjectID     `bson:"_id,omitempty" json:"_id,omitempty"`
	DeviceID string                 `bson:"deviceId" json:"deviceId"`
	Area     string                 `bson:"area,omitempty" json:"area,omitempty"`
	Values   map[string]interface{} `bson:"values,omitempty" json:"values,omitempty"`
	// Source records which transport produced the sample (mqtt or serial).
	Source    string    `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Extra holds unrecognized top-level payload fields. The inline tag
	// flattens them into the document on write and absorbs unknown fields
	// on read.
	Extra map[string]interface{} `bson:",inline" json:"-"`
}

// MarshalJSON flattens Extra back into the top-level object so API responses
// return documents exactly as they were ingested. Typed fields win on key
// collision.
func (r Reading) MarshalJSON() ([]byte, error) {
	type readingAlias Reading
	base, err := json.Marshal(readingAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, exists := doc[k]; !exists {
			doc[k] = v
		}
	}
	return json.Marshal(doc)
}

// AreaLabel converts a short area code ("a", "B") into the label stored on
// readings ("Area A", "Area B").
func AreaLabel(code string) string {
	return "Area " + strings.ToUpper(strings.TrimSpace(code))
}
