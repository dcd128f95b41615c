package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Rig           RigJSON      `json:"rig"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Dropped       int64        `json:"dropped_events"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// RigJSON is the JSON representation of the rig snapshot.
type RigJSON struct {
	Phase       string `json:"phase"`
	On          bool   `json:"on"`
	Rotating    bool   `json:"rotating"`
	Emergency   bool   `json:"emergency"`
	StopThenOff bool   `json:"stop_then_off"`
	Mode        string `json:"mode,omitempty"`
	CurrentMs   int    `json:"current_ms"`
	TargetMs    int    `json:"target_ms"`
	WalkIndex   int    `json:"walk_index"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	On            int `json:"on"`
	Off           int `json:"off"`
	RotationStart int `json:"rotation_start"`
	StopRequested int `json:"stop_requested"`
	RotationEnd   int `json:"rotation_end"`
	Emergency     int `json:"emergency"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DebounceMs  int64  `json:"debounce_ms"`
	RampMs      int64  `json:"ramp_ms"`
	WalkMs      int64  `json:"walk_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Simulated   bool   `json:"simulated"`
}

// Build converts a snapshot into its JSON shape.
func Build(snap Snapshot) StatusInner {
	r := snap.Rig
	inner := StatusInner{
		Rig: RigJSON{
			Phase:       string(r.Phase()),
			On:          r.On,
			Rotating:    r.Rotating,
			Emergency:   r.Emergency,
			StopThenOff: r.StopThenOff,
			Mode:        r.Mode,
			CurrentMs:   int(r.Current),
			TargetMs:    int(r.Target),
			WalkIndex:   r.WalkIndex,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			On:            snap.Counts.On,
			Off:           snap.Counts.Off,
			RotationStart: snap.Counts.RotationStart,
			StopRequested: snap.Counts.StopRequested,
			RotationEnd:   snap.Counts.RotationEnd,
			Emergency:     snap.Counts.Emergency,
		},
		Dropped: snap.Dropped,
		Config: ConfigJSON{
			DebounceMs:  snap.Config.DebounceMs,
			RampMs:      snap.Config.RampMs,
			WalkMs:      snap.Config.WalkMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Simulated:   snap.Config.Simulated,
		},
	}

	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: Build(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := Build(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
