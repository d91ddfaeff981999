package sdi12

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// DriverMetrics contains atomic metrics for a Transport and its Driver.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc,
// and may be read while the bus is in use.
type DriverMetrics struct {
	// TransactionCount indicates the number of wake+command sequences sent.
	TransactionCount atomic.Uint64
	// ResponseCount indicates the number of transactions that got a reply.
	ResponseCount atomic.Uint64
	// TimeoutCount indicates the number of transactions without a reply.
	TimeoutCount atomic.Uint64
	// TransportErrCount indicates the number of controller-side failures.
	TransportErrCount atomic.Uint64
	// DecodeErrCount indicates the number of discarded undecodable lines.
	DecodeErrCount atomic.Uint64
	// MalformedReplyCount indicates the number of replies with a bad layout.
	MalformedReplyCount atomic.Uint64
	// ParseErrCount indicates the number of data payloads that failed to parse.
	ParseErrCount atomic.Uint64
	// ServiceRequestCount indicates the number of early service requests seen.
	ServiceRequestCount atomic.Uint64
	// RetrievalCount indicates the number of data retrieval commands sent.
	RetrievalCount atomic.Uint64
	// PartialMeasurementCount indicates the number of measurements that hit
	// the retrieval cap before the advertised value count.
	PartialMeasurementCount atomic.Uint64

	addrs *xsync.MapOf[Address, *AddressMetrics]
}

// AddressMetrics contains per-sensor counters.
type AddressMetrics struct {
	TransactionCount atomic.Uint64
	TimeoutCount     atomic.Uint64
}

func newDriverMetrics() *DriverMetrics {
	return &DriverMetrics{addrs: xsync.NewMapOf[Address, *AddressMetrics]()}
}

// Address returns the counters of addr, or nil if addr was never addressed.
func (m *DriverMetrics) Address(addr Address) *AddressMetrics {
	am, _ := m.addrs.Load(addr)
	return am
}

// RangeAddresses calls f for each address seen so far until f returns false.
func (m *DriverMetrics) RangeAddresses(f func(Address, *AddressMetrics) bool) {
	m.addrs.Range(f)
}

func (m *DriverMetrics) forAddress(addr Address) *AddressMetrics {
	am, _ := m.addrs.LoadOrCompute(addr, func() *AddressMetrics { return &AddressMetrics{} })
	return am
}

func (m *DriverMetrics) incTransaction(addr Address) {
	m.TransactionCount.Add(1)
	if addr.IsValid() {
		m.forAddress(addr).TransactionCount.Add(1)
	}
}

func (m *DriverMetrics) incTimeout(addr Address) {
	m.TimeoutCount.Add(1)
	if addr.IsValid() {
		m.forAddress(addr).TimeoutCount.Add(1)
	}
}

func (m *DriverMetrics) incResponseCount() {
	m.ResponseCount.Add(1)
}

func (m *DriverMetrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}

func (m *DriverMetrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *DriverMetrics) incMalformedReplyCount() {
	m.MalformedReplyCount.Add(1)
}

func (m *DriverMetrics) incParseErrCount() {
	m.ParseErrCount.Add(1)
}

func (m *DriverMetrics) incServiceRequestCount() {
	m.ServiceRequestCount.Add(1)
}

func (m *DriverMetrics) incRetrievalCount() {
	m.RetrievalCount.Add(1)
}

func (m *DriverMetrics) incPartialMeasurementCount() {
	m.PartialMeasurementCount.Add(1)
}
