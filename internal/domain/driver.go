package domain

// DriverState carries the driver-side flags that gate realtime order intake.
type DriverState struct {
	Online    bool
	Available bool
	OnDuty    bool
}

// CanReceive reports whether the driver should be offered new orders.
// All three flags are independent and all are required.
func (d DriverState) CanReceive() bool {
	return d.Online && d.Available && d.OnDuty
}
