// Package metrics exposes machine state as Prometheus metrics. The
// collector reads settled engine snapshots at scrape time, so it never
// observes a state mid-mutation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/registry"
)

func machineDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(name, help, []string{"machine_name"}, nil)
}

var (
	descRelayState = machineDesc("machine_relay_state", "The state of the machine relay")
	descOopsState  = machineDesc("machine_oops_state", "The Oops state of the machine")
	descLockout    = machineDesc("machine_lockout_state", "The lockout state of the machine")
	descWarnOnly   = machineDesc("machine_unauth_warn_only_state", "The unauthorized_warn_only state of the machine")
	descCheckin    = machineDesc("machine_last_checkin_timestamp", "The last checkin timestamp for the machine")
	descUpdate     = machineDesc("machine_last_update_timestamp", "The last update timestamp of the machine")
	descRFID       = machineDesc("machine_rfid_present", "Whether a RFID fob is present in the machine")
	descRFIDSince  = machineDesc("machine_rfid_present_since_timestamp", "The timestamp since the RFID was inserted into the machine")
	descAmps       = machineDesc("machine_current_amps", "The amperage being used by the machine if applicable")
	descKnownUser  = machineDesc("machine_known_user", "Whether a known user RFID is inserted into the machine")
	descUptime     = machineDesc("machine_uptime_seconds", "The machine uptime seconds")
	descWifiDB     = machineDesc("machine_wifi_signal_db", "The machine WiFi signal in dB")
	descWifiPct    = machineDesc("machine_wifi_signal_percent", "The machine WiFi signal in percent")
	descTempC      = machineDesc("machine_esp_temperature_c", "The machine controller internal temperature in °C")
	descLED        = prometheus.NewDesc("machine_status_led", "The machine status LED state",
		[]string{"machine_name", "led_attribute"}, nil)

	descUserCount = prometheus.NewDesc("user_count", "The number of users configured", nil, nil)
	descFobCount  = prometheus.NewDesc("fob_count", "The number of fobs configured", nil, nil)
	descUsersLoad = prometheus.NewDesc("user_config_load_timestamp", "The timestamp when the users config was loaded", nil, nil)
	descMachLoad  = prometheus.NewDesc("machine_config_load_timestamp", "The timestamp when the machine config was loaded", nil, nil)
	descAppStart  = prometheus.NewDesc("app_start_timestamp", "The timestamp when the server app started", nil, nil)
)

// Collector implements prometheus.Collector over the engine set, the
// user directory, and the machine registry.
type Collector struct {
	set       *engine.Set
	dir       *directory.Directory
	reg       *registry.Registry
	startTime time.Time
}

// NewCollector builds the collector. startTime is the process start.
func NewCollector(set *engine.Set, dir *directory.Directory, reg *registry.Registry, startTime time.Time) *Collector {
	return &Collector{set: set, dir: dir, reg: reg, startTime: startTime}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		descRelayState, descOopsState, descLockout, descWarnOnly,
		descCheckin, descUpdate, descRFID, descRFIDSince, descAmps,
		descKnownUser, descUptime, descWifiDB, descWifiPct, descTempC,
		descLED, descUserCount, descFobCount, descUsersLoad, descMachLoad,
		descAppStart,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	gauge(descUserCount, float64(c.dir.UserCount()))
	gauge(descFobCount, float64(c.dir.FobCount()))
	gauge(descUsersLoad, float64(c.dir.LoadTime().Unix()))
	gauge(descMachLoad, float64(c.reg.LoadTime().Unix()))
	gauge(descAppStart, float64(c.startTime.Unix()))

	for _, snap := range c.set.Snapshots() {
		name := snap.Name
		st := snap.State
		gauge(descRelayState, boolGauge(st.RelayDesiredState), name)
		gauge(descOopsState, boolGauge(st.IsOopsed), name)
		gauge(descLockout, boolGauge(st.IsLockedOut), name)
		gauge(descWarnOnly, boolGauge(snap.Policy.UnauthorizedWarnOnly), name)
		gauge(descCheckin, timeGauge(st.LastCheckin), name)
		gauge(descUpdate, timeGauge(st.LastUpdate), name)
		gauge(descRFID, boolGauge(st.RFIDValue != ""), name)
		gauge(descRFIDSince, timeGauge(st.RFIDPresentSince), name)
		gauge(descAmps, st.CurrentAmps, name)
		gauge(descKnownUser, boolGauge(st.CurrentUserFob != ""), name)
		gauge(descUptime, st.Uptime, name)
		gauge(descWifiDB, floatGauge(st.WifiSignalDB), name)
		gauge(descWifiPct, floatGauge(st.WifiSignalPercent), name)
		gauge(descTempC, floatGauge(st.InternalTemperatureC), name)
		gauge(descLED, st.StatusLEDRGB[0], name, "red")
		gauge(descLED, st.StatusLEDRGB[1], name, "green")
		gauge(descLED, st.StatusLEDRGB[2], name, "blue")
		gauge(descLED, st.StatusLEDBrightness, name, "brightness")
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func timeGauge(t *time.Time) float64 {
	if t == nil {
		return 0
	}
	return float64(t.Unix())
}

func floatGauge(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Handler returns the /metrics HTTP handler with the collector
// registered on a dedicated registry.
func Handler(c *Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
