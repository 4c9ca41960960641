// Package models contains the domain models for the rental engine.
package models

import (
	"fmt"
	"time"
)

// UnitStatus is the lifecycle status of a physical unit.
type UnitStatus string

const (
	UnitReady       UnitStatus = "ready"
	UnitRented      UnitStatus = "rented"
	UnitMaintenance UnitStatus = "maintenance"
	UnitUnderRepair UnitStatus = "under_repair"
	UnitLost        UnitStatus = "lost"
)

// ParseUnitStatus validates a wire value.
func ParseUnitStatus(s string) (UnitStatus, error) {
	switch st := UnitStatus(s); st {
	case UnitReady, UnitRented, UnitMaintenance, UnitUnderRepair, UnitLost:
		return st, nil
	}
	return "", fmt.Errorf("unknown unit status %q", s)
}

// Allocatable reports whether units in this status may be considered at all.
// Lost units are excluded from every allocation.
func (s UnitStatus) Allocatable() bool {
	return s != UnitLost
}

// InventoryUnit is one physical rentable item.
type InventoryUnit struct {
	ID               string     `json:"id"`
	Category         string     `json:"category"`
	Status           UnitStatus `json:"status"`
	SerialNumber     string     `json:"serial_number"`
	HealthScore      int        `json:"health_score"`
	MaintenanceState string     `json:"maintenance_state,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
