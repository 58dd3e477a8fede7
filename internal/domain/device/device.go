package device

import (
	"time"

	"github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"
	"github.com/scituinsk/BE-Smart-Farming/internal/domain/user"
)

// Module is one physical controller and the broadcast channel scoped to it.
type Module struct {
	// ID is the primary key.
	ID uint `gorm:"primaryKey" json:"id"`
	// SerialID is the public identifier used in channel and topic names.
	SerialID string `gorm:"size:36;uniqueIndex;not null" json:"serial_id"`
	// Secret is the shared device password used for device-side authentication.
	Secret string `gorm:"size:64;not null" json:"-"`
	// Name is a display name.
	Name string `gorm:"size:50" json:"name"`
	// Description is free-form display text.
	Description string `gorm:"size:255" json:"description"`
	// Status reports whether the device is currently considered online.
	Status bool `gorm:"default:false" json:"status"`
	// Users is the set of accounts authorized to exchange messages for this module.
	Users []user.User `gorm:"many2many:module_users" json:"-"`
	// Pins are the actuators wired to the module.
	Pins []Pin `json:"pins,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasUser reports whether the account is a member of the module.
// Users must have been preloaded.
func (m *Module) HasUser(userID uint) bool {
	for _, u := range m.Users {
		if u.ID == userID {
			return true
		}
	}

	return false
}

// Pin is one actuator on a module. Its number is what alarm payloads address.
type Pin struct {
	// ID is the primary key.
	ID uint `gorm:"primaryKey" json:"id"`
	// ModuleID references the owning module.
	ModuleID uint `gorm:"index;not null" json:"module_id"`
	// GroupID optionally assigns the pin to a schedule group.
	GroupID *uint `gorm:"index" json:"group_id"`
	// Number is the hardware pin number embedded in fired payloads.
	Number int `json:"pin"`
	// Name is a display name.
	Name string `gorm:"size:20" json:"name"`
	// Type classifies the actuator (relay, pump, ...), display only.
	Type string `gorm:"size:20" json:"type"`
	// Status is the last known actuation state.
	Status bool `gorm:"default:false" json:"status"`
}

// ScheduleGroup bundles pins that alarms actuate together.
type ScheduleGroup struct {
	// ID is the primary key.
	ID uint `gorm:"primaryKey" json:"id"`
	// ModuleID references the owning module.
	ModuleID uint `gorm:"index;not null" json:"module_id"`
	// Name is a display name.
	Name string `gorm:"size:20" json:"name"`
	// Sequential makes the device actuate the group's pins one after
	// another instead of all at once. It is forwarded in fired payloads.
	Sequential bool `gorm:"default:false" json:"sequential"`
	// Pins are the actuators this group fans out to.
	Pins []Pin `gorm:"foreignKey:GroupID" json:"pins,omitempty"`
	// Alarms are the scheduled events targeting this group.
	Alarms []alarm.Alarm `gorm:"foreignKey:GroupID" json:"alarms,omitempty"`
}

// PinNumbers returns the hardware numbers of the group's pins,
// in storage order. Pins must have been preloaded.
func (g *ScheduleGroup) PinNumbers() []int {
	numbers := make([]int, 0, len(g.Pins))
	for _, p := range g.Pins {
		numbers = append(numbers, p.Number)
	}

	return numbers
}

// ScheduleLog records a schedule execution reported back by the device.
type ScheduleLog struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ModuleID uint   `gorm:"index;not null" json:"module_id"`
	Message  string `gorm:"size:50" json:"message"`

	CreatedAt time.Time `json:"created_at"`
}

// SensorReading stores the latest reported value of one module feature.
// Each feature row is updated independently of the others.
type SensorReading struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ModuleID uint   `gorm:"index:idx_reading_module_feature,unique;not null" json:"module_id"`
	Feature  string `gorm:"size:50;index:idx_reading_module_feature,unique;not null" json:"feature"`
	// Data is the raw JSON value reported by the device.
	Data string `gorm:"type:text" json:"data"`

	LastData time.Time `gorm:"autoUpdateTime" json:"last_data"`
}
