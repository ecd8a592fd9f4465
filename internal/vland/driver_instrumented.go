package vland

import (
	"context"
	"time"

	"github.com/dynvland/dynvland/internal/vlanmetrics"
)

// instrumentedDriver wraps a Driver, recording call duration and error
// counts per operation without the wrapped driver needing to know about
// metrics at all.
type instrumentedDriver struct {
	next    Driver
	metrics *vlanmetrics.Metrics
}

// Instrument wraps d so every call records duration and error metrics. A
// nil metrics bundle makes this a transparent pass-through, so callers that
// do not run a metrics registry pay nothing.
func Instrument(d Driver, m *vlanmetrics.Metrics) Driver {
	if m == nil {
		return d
	}
	return &instrumentedDriver{next: d, metrics: m}
}

func (d *instrumentedDriver) observe(op string, err error, start time.Time) {
	d.metrics.DriverCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		d.metrics.DriverCallErrors.WithLabelValues(op).Inc()
	}
}

func (d *instrumentedDriver) IfUp(ctx context.Context, name string) error {
	start := time.Now()
	err := d.next.IfUp(ctx, name)
	d.observe("ifup", err, start)
	return err
}

func (d *instrumentedDriver) IfDown(ctx context.Context, name string) error {
	start := time.Now()
	err := d.next.IfDown(ctx, name)
	d.observe("ifdown", err, start)
	return err
}

func (d *instrumentedDriver) VlanAdd(ctx context.Context, trunk string, vid int, childName string) (VlanAddResult, error) {
	start := time.Now()
	res, err := d.next.VlanAdd(ctx, trunk, vid, childName)
	d.observe("vlan_add", err, start)
	return res, err
}

func (d *instrumentedDriver) VlanRemove(ctx context.Context, childName string) error {
	start := time.Now()
	err := d.next.VlanRemove(ctx, childName)
	d.observe("vlan_rem", err, start)
	return err
}

func (d *instrumentedDriver) VlanSetNameType(ctx context.Context, mode VlanNamingMode) error {
	start := time.Now()
	err := d.next.VlanSetNameType(ctx, mode)
	d.observe("vlan_set_name_type", err, start)
	return err
}

func (d *instrumentedDriver) BridgeAdd(ctx context.Context, name string) error {
	start := time.Now()
	err := d.next.BridgeAdd(ctx, name)
	d.observe("br_addbr", err, start)
	return err
}

func (d *instrumentedDriver) BridgeDel(ctx context.Context, name string) error {
	start := time.Now()
	err := d.next.BridgeDel(ctx, name)
	d.observe("br_delbr", err, start)
	return err
}

func (d *instrumentedDriver) BridgeAddIf(ctx context.Context, br, port string) error {
	start := time.Now()
	err := d.next.BridgeAddIf(ctx, br, port)
	d.observe("br_addif", err, start)
	return err
}

func (d *instrumentedDriver) BridgeDelIf(ctx context.Context, br, port string) error {
	start := time.Now()
	err := d.next.BridgeDelIf(ctx, br, port)
	d.observe("br_delif", err, start)
	return err
}

func (d *instrumentedDriver) BridgeNumPorts(ctx context.Context, br string) (int, error) {
	start := time.Now()
	n, err := d.next.BridgeNumPorts(ctx, br)
	d.observe("br_getnumports", err, start)
	return n, err
}

func (d *instrumentedDriver) SkipDelBrWhenPortsRemain() bool {
	return d.next.SkipDelBrWhenPortsRemain()
}
