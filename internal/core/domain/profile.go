package domain

// Profile is a stored EV profile used to prefill trip parameters.
type Profile struct {
	UserID             string   `json:"user_id"`
	EVModel            string   `json:"ev_model"`
	BatteryCapacity    float64  `json:"battery_capacity"`
	CurrentBattery     int      `json:"current_battery"`
	BatteryHealth      int      `json:"battery_health"`
	VehicleLoad        *float64 `json:"vehicle_load,omitempty"`
	AmbientTemperature *float64 `json:"ambient_temperature,omitempty"`
}

// ProfileUpdate carries optional fields; nil means leave unchanged.
type ProfileUpdate struct {
	EVModel            *string  `json:"ev_model,omitempty"`
	BatteryCapacity    *float64 `json:"battery_capacity,omitempty"`
	CurrentBattery     *int     `json:"current_battery,omitempty"`
	BatteryHealth      *int     `json:"battery_health,omitempty"`
	VehicleLoad        *float64 `json:"vehicle_load,omitempty"`
	AmbientTemperature *float64 `json:"ambient_temperature,omitempty"`
}

// Apply merges the non-nil fields of u into p.
func (p *Profile) Apply(u ProfileUpdate) {
	if u.EVModel != nil {
		p.EVModel = *u.EVModel
	}
	if u.BatteryCapacity != nil {
		p.BatteryCapacity = *u.BatteryCapacity
	}
	if u.CurrentBattery != nil {
		p.CurrentBattery = *u.CurrentBattery
	}
	if u.BatteryHealth != nil {
		p.BatteryHealth = *u.BatteryHealth
	}
	if u.VehicleLoad != nil {
		p.VehicleLoad = u.VehicleLoad
	}
	if u.AmbientTemperature != nil {
		p.AmbientTemperature = u.AmbientTemperature
	}
}
