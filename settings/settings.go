// Package settings holds the process-wide tunables that shape how running
// templates paint, and a manager that lets them be edited live.
package settings

import (
	"fmt"
	"sync"
	"time"
)

// Drawing directions. The value is what the control API sends.
const (
	DirectionTopDown   = "ttb"
	DirectionBottomUp  = "btt"
	DirectionLeftRight = "ltr"
	DirectionRightLeft = "rtl"
	DirectionCenterOut = "center_out"
	DirectionRandom    = "random"
)

// Drawing orders.
const (
	OrderLinear = "linear"
	OrderColor  = "color"
)

// Settings is a value type: readers get a copy and can never observe a
// half-applied update. Durations are milliseconds on the wire.
type Settings struct {
	AccountCooldown  int     `json:"accountCooldown"`
	PurchaseCooldown int     `json:"purchaseCooldown"`
	AntiGriefStandby int     `json:"antiGriefStandby"`
	DrawingDirection string  `json:"drawingDirection"`
	DrawingOrder     string  `json:"drawingOrder"`
	ChargeThreshold  float64 `json:"chargeThreshold"`
	PixelSkip        int     `json:"pixelSkip"`
	DropletReserve   int     `json:"dropletReserve"`
}

func Default() Settings {
	return Settings{
		AccountCooldown:  20_000,
		PurchaseCooldown: 5_000,
		AntiGriefStandby: 600_000,
		DrawingDirection: DirectionTopDown,
		DrawingOrder:     OrderLinear,
		ChargeThreshold:  0.5,
		PixelSkip:        1,
		DropletReserve:   0,
	}
}

func (s Settings) AccountCooldownDuration() time.Duration {
	return time.Duration(s.AccountCooldown) * time.Millisecond
}

func (s Settings) PurchaseCooldownDuration() time.Duration {
	return time.Duration(s.PurchaseCooldown) * time.Millisecond
}

func (s Settings) AntiGriefStandbyDuration() time.Duration {
	return time.Duration(s.AntiGriefStandby) * time.Millisecond
}

func (s Settings) Validate() error {
	switch s.DrawingDirection {
	case DirectionTopDown, DirectionBottomUp, DirectionLeftRight,
		DirectionRightLeft, DirectionCenterOut, DirectionRandom:
	default:
		return fmt.Errorf("unknown drawing direction %q", s.DrawingDirection)
	}
	switch s.DrawingOrder {
	case OrderLinear, OrderColor:
	default:
		return fmt.Errorf("unknown drawing order %q", s.DrawingOrder)
	}
	if s.AccountCooldown < 0 || s.PurchaseCooldown < 0 || s.AntiGriefStandby < 0 {
		return fmt.Errorf("cooldowns must not be negative")
	}
	if s.ChargeThreshold < 0 || s.ChargeThreshold > 1 {
		return fmt.Errorf("charge threshold %v out of range [0,1]", s.ChargeThreshold)
	}
	if s.PixelSkip < 1 {
		return fmt.Errorf("pixel skip must be at least 1, got %d", s.PixelSkip)
	}
	if s.DropletReserve < 0 {
		return fmt.Errorf("droplet reserve must not be negative")
	}
	return nil
}

// Manager hands out settings snapshots and notifies listeners on change so
// sleeping templates wake and re-read instead of waiting out stale durations.
type Manager struct {
	mu        sync.RWMutex
	current   Settings
	listeners []func()
}

func NewManager(initial Settings) *Manager {
	return &Manager{current: initial}
}

func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update validates and installs new settings, then fires every listener.
func (m *Manager) Update(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = s
	listeners := make([]func(), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnChange registers a listener called after every successful Update.
// Listeners must be fast and non-blocking.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}
