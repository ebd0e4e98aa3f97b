// Package metrics exports an inventory in the Prometheus text format for
// the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigreer/diskmap/internal/inventory"
)

// Metrics holds the inventory gauges and the registry they live in
type Metrics struct {
	Registry *prometheus.Registry

	Controllers     prometheus.Gauge
	EnclosureSlots  *prometheus.GaugeVec
	EnclosureDrives *prometheus.GaugeVec
	DriveInfo       *prometheus.GaugeVec
	DriveSizeBytes  *prometheus.GaugeVec
	DriveMapped     *prometheus.GaugeVec
}

// New creates and registers all metrics on a private registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Controllers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "diskmap_controllers",
				Help: "Number of SAS controllers reported by sas2ircu",
			},
		),
		EnclosureSlots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskmap_enclosure_slots",
				Help: "Total slots of an enclosure",
			},
			[]string{"controller", "enclosure", "logical_id"},
		),
		EnclosureDrives: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskmap_enclosure_drives",
				Help: "Hard disks present in an enclosure",
			},
			[]string{"controller", "enclosure", "logical_id"},
		),
		DriveInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskmap_drive_info",
				Help: "Drive identity and location (always 1)",
			},
			[]string{"serial", "location", "model", "firmware", "state", "drive_type", "device"},
		),
		DriveSizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskmap_drive_size_bytes",
				Help: "Drive capacity in bytes",
			},
			[]string{"serial"},
		),
		DriveMapped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "diskmap_drive_mapped",
				Help: "Whether the drive was matched to an OS device (0=no, 1=yes)",
			},
			[]string{"serial"},
		),
	}

	m.Registry.MustRegister(
		m.Controllers,
		m.EnclosureSlots,
		m.EnclosureDrives,
		m.DriveInfo,
		m.DriveSizeBytes,
		m.DriveMapped,
	)

	return m
}

// Reset clears all metrics
func (m *Metrics) Reset() {
	m.Controllers.Set(0)
	m.EnclosureSlots.Reset()
	m.EnclosureDrives.Reset()
	m.DriveInfo.Reset()
	m.DriveSizeBytes.Reset()
	m.DriveMapped.Reset()
}

// Update replaces all values with the contents of inv
func (m *Metrics) Update(inv *inventory.Inventory) {
	m.Reset()
	m.Controllers.Set(float64(len(inv.Controllers)))

	populated := make(map[string]int)
	for _, d := range inv.DriveList() {
		populated[d.Enclosure]++

		mapped := 0.0
		if d.Mapped() {
			mapped = 1
		}
		m.DriveInfo.WithLabelValues(d.Serial, d.Location(), d.Model, d.Firmware,
			d.State, d.DriveType, d.DevicePath).Set(1)
		m.DriveSizeBytes.WithLabelValues(d.Serial).Set(float64(d.SizeMB) * (1 << 20))
		m.DriveMapped.WithLabelValues(d.Serial).Set(mapped)
	}

	for _, e := range inv.EnclosureList() {
		ctrl := strconv.Itoa(e.Controller)
		idx := strconv.Itoa(e.Index)
		m.EnclosureSlots.WithLabelValues(ctrl, idx, e.ID).Set(float64(e.NumSlots))
		m.EnclosureDrives.WithLabelValues(ctrl, idx, e.ID).Set(float64(populated[e.ID]))
	}
}

// WriteTextfile writes the current values to path, replacing it atomically
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Export writes a textfile for inv in one step
func Export(inv *inventory.Inventory, path string) error {
	m := New()
	m.Update(inv)
	return m.WriteTextfile(path)
}
