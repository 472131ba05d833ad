package domain

import "time"

// ActivityStatus is what a field worker reports they are doing.
type ActivityStatus string

const (
	ActivityOnline  ActivityStatus = "online"
	ActivityDriving ActivityStatus = "driving"
	ActivityWorking ActivityStatus = "working"
	ActivityIdle    ActivityStatus = "idle"
	ActivityOffline ActivityStatus = "offline"
)

// LocationUpdate is a position report from a field worker's device.
type LocationUpdate struct {
	Latitude       float64
	Longitude      float64
	Speed          *float64
	Heading        *float64
	BatteryLevel   *float64
	IsCharging     *bool
	ActivityStatus *ActivityStatus
}

// LocationSnapshot is the last location relayed by a connection, kept in
// memory only for the presence view.
type LocationSnapshot struct {
	LocationUpdate
	ReportedAt time.Time
}
