// Package state provides thread-safe status tracking for the capture loop.
package state

import (
	"sync"
	"time"
)

// EventType represents the type of scheduler event.
type EventType string

const (
	EventCapture   EventType = "CAPTURE"
	EventHandoff   EventType = "SENSOR_HANDOFF"
	EventDegraded  EventType = "DEGRADED"
	EventFault     EventType = "FAULT"
	EventSinkError EventType = "SINK_ERROR"
)

// Event represents one noteworthy occurrence in the capture loop.
type Event struct {
	Type            EventType `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	Sensor          string    `json:"sensor,omitempty"`
	ExposureSeconds float64   `json:"exposure_seconds,omitempty"`
	Detail          string    `json:"detail,omitempty"`
}

// ExposureSample is one point of the exposure history, kept so operators
// can see the twilight ramp after the fact.
type ExposureSample struct {
	Timestamp       time.Time `json:"timestamp"`
	Sensor          string    `json:"sensor"`
	ExposureSeconds float64   `json:"exposure_seconds"`
	SolarAltDeg     float64   `json:"solar_altitude_degrees"`
}

// Snapshot is a point-in-time copy of the tracked state.
type Snapshot struct {
	StartedAt           time.Time        `json:"started_at"`
	LastCycleAt         time.Time        `json:"last_cycle_at"`
	LastDeliveredAt     time.Time        `json:"last_delivered_at"`
	LastSensor          string           `json:"last_sensor,omitempty"`
	LastExposureSeconds float64          `json:"last_exposure_seconds"`
	LastSolarAltDeg     float64          `json:"last_solar_altitude_degrees"`
	LastFault           string           `json:"last_fault,omitempty"`
	ConsecutiveFaults   int              `json:"consecutive_faults"`
	TotalDelivered      int              `json:"total_delivered"`
	TotalFaults         int              `json:"total_faults"`
	TotalDegraded       int              `json:"total_degraded"`
	Events              []Event          `json:"events"`
	History             []ExposureSample `json:"exposure_history"`
}

// Config holds configuration for the state manager.
type Config struct {
	MaxEvents  int
	MaxHistory int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxEvents:  50,  // Last 50 events
		MaxHistory: 240, // 4 hours at 1 cycle/min, covers a full twilight ramp
	}
}

// Manager tracks capture loop state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	startedAt time.Time

	lastCycleAt     time.Time
	lastDeliveredAt time.Time
	lastSensor      string
	lastExposure    float64
	lastSolarAlt    float64
	lastFault       string

	consecutiveFaults int
	totalDelivered    int
	totalFaults       int
	totalDegraded     int

	events     []Event
	maxEvents  int
	history    []ExposureSample
	maxHistory int
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 240
	}
	return &Manager{
		startedAt:  time.Now(),
		maxEvents:  maxEvents,
		maxHistory: maxHistory,
		events:     make([]Event, 0, maxEvents),
		history:    make([]ExposureSample, 0, maxHistory),
	}
}

// RecordDelivered records a successfully delivered capture.
func (m *Manager) RecordDelivered(at time.Time, sensor string, exposureSeconds, solarAltDeg float64, degraded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastCycleAt = at
	m.lastDeliveredAt = at
	m.lastSensor = sensor
	m.lastExposure = exposureSeconds
	m.lastSolarAlt = solarAltDeg
	m.consecutiveFaults = 0
	m.totalDelivered++

	m.appendEvent(Event{
		Type:            EventCapture,
		Timestamp:       at,
		Sensor:          sensor,
		ExposureSeconds: exposureSeconds,
	})
	if degraded {
		m.totalDegraded++
		m.appendEvent(Event{
			Type:            EventDegraded,
			Timestamp:       at,
			Sensor:          sensor,
			ExposureSeconds: exposureSeconds,
		})
	}

	m.history = append(m.history, ExposureSample{
		Timestamp:       at,
		Sensor:          sensor,
		ExposureSeconds: exposureSeconds,
		SolarAltDeg:     solarAltDeg,
	})
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

// RecordFault records a cycle lost to a driver failure.
func (m *Manager) RecordFault(at time.Time, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastCycleAt = at
	m.lastFault = detail
	m.consecutiveFaults++
	m.totalFaults++

	m.appendEvent(Event{
		Type:      EventFault,
		Timestamp: at,
		Detail:    detail,
	})
}

// RecordSinkError records a persistence failure for a delivered capture.
func (m *Manager) RecordSinkError(at time.Time, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendEvent(Event{
		Type:      EventSinkError,
		Timestamp: at,
		Detail:    detail,
	})
}

// RecordHandoff records a sensor change between cycles.
func (m *Manager) RecordHandoff(at time.Time, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendEvent(Event{
		Type:      EventHandoff,
		Timestamp: at,
		Sensor:    to,
		Detail:    from + " -> " + to,
	})
}

// ConsecutiveFaults returns the current run of failed cycles.
func (m *Manager) ConsecutiveFaults() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecutiveFaults
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]Event, len(m.events))
	copy(events, m.events)
	history := make([]ExposureSample, len(m.history))
	copy(history, m.history)

	return Snapshot{
		StartedAt:           m.startedAt,
		LastCycleAt:         m.lastCycleAt,
		LastDeliveredAt:     m.lastDeliveredAt,
		LastSensor:          m.lastSensor,
		LastExposureSeconds: m.lastExposure,
		LastSolarAltDeg:     m.lastSolarAlt,
		LastFault:           m.lastFault,
		ConsecutiveFaults:   m.consecutiveFaults,
		TotalDelivered:      m.totalDelivered,
		TotalFaults:         m.totalFaults,
		TotalDegraded:       m.totalDegraded,
		Events:              events,
		History:             history,
	}
}

// appendEvent adds an event, trimming the oldest past the cap.
// Callers must hold the lock.
func (m *Manager) appendEvent(e Event) {
	m.events = append(m.events, e)
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}
