// pkg/model/record.go
package model

import (
	"fmt"
	"time"
)

// Status is the closed shipment status enumeration. Raw status text that
// cannot be normalized maps to StatusUnknown rather than dropping the record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusUnknown   Status = "unknown"
)

// ShipmentRecord represents one row of raw or cleaned shipment data.
//
// Raw* fields hold the text exactly as extracted; the typed fields are
// populated by the cleaning stages. DeliveryDays is only present after the
// duration stage has run.
type ShipmentRecord struct {
	Row               int // original ingestion position, 0-based
	ShipmentID        string
	OriginRegion      string
	DestinationRegion string
	RawShipDate       string
	RawDeliveryDate   string
	RawStatus         string
	ShipDate          *time.Time
	DeliveryDate      *time.Time
	Status            Status
	DeliveryDays      *int
	IsHoliday         bool
}

// RowIdentifier returns the value used to reference this record in audit
// entries: the shipment ID when one exists, otherwise the raw row position.
func (r ShipmentRecord) RowIdentifier() string {
	if r.ShipmentID != "" {
		return r.ShipmentID
	}
	return fmt.Sprintf("row:%d", r.Row)
}

// Delivered reports whether the record has a delivered status.
func (r ShipmentRecord) Delivered() bool {
	return r.Status == StatusDelivered
}
