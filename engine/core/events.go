package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed.
	/* Context usage:
	 * data.(*ResizeEvent)
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x02

	// The backend lost its rendering context. Every GPU-side handle is invalid.
	EVENT_CODE_CONTEXT_LOST SystemEventCode = 0x03

	// The backend restored its rendering context. Caches rebuild lazily.
	EVENT_CODE_CONTEXT_RESTORED SystemEventCode = 0x04

	/* Context usage:
	 * data.(*metadata.Geometry)
	 */
	EVENT_CODE_GEOMETRY_DISPOSED SystemEventCode = 0x05

	/* Context usage:
	 * data.(*metadata.Material)
	 */
	EVENT_CODE_MATERIAL_DISPOSED SystemEventCode = 0x06

	/* Context usage:
	 * data.(*metadata.Texture)
	 */
	EVENT_CODE_TEXTURE_DISPOSED SystemEventCode = 0x07

	/* Context usage:
	 * data.(*metadata.Material)
	 */
	EVENT_CODE_MATERIAL_RELOADED SystemEventCode = 0x08

	// A drawable left the scene graph, caches keyed by its id can be freed.
	/* Context usage:
	 * data.(uint32) the drawable id
	 */
	EVENT_CODE_DRAWABLE_REMOVED SystemEventCode = 0x09

	// A light left the scene graph, its shadow resources can be freed.
	/* Context usage:
	 * data.(*metadata.Light)
	 */
	EVENT_CODE_LIGHT_REMOVED SystemEventCode = 0x0A

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

// Should return true if handled.
type FnOnEvent func(sender interface{}, listener interface{}, context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// State structure.
type eventSystemState struct {
	mu sync.RWMutex
	// Lookup table for event codes.
	registered map[SystemEventCode][]registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState

func getEventState() *eventSystemState {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[SystemEventCode][]registeredEvent),
		}
	})
	return eventState
}

func EventSystemInitialize() bool {
	return getEventState() != nil
}

func EventSystemShutdown() error {
	s := getEventState()
	s.mu.Lock()
	defer s.mu.Unlock()
	// Objects pointed to should be destroyed on their own.
	clear(s.registered)
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listener combos will not be registered again and will cause this to return false.
 * @param code The event code to listen for.
 * @param listener A pointer to a listener instance. Can be nil.
 * @param onEvent The callback function to be invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code < 0 || code >= MAX_MESSAGE_CODES || onEvent == nil {
		return false
	}
	s := getEventState()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	s.registered[code] = append(s.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns false.
 */
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	s := getEventState()
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.registered[code]
	for i, e := range events {
		if e.listener == listener {
			s.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	// Not found.
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	s := getEventState()
	s.mu.RLock()
	events := make([]registeredEvent, len(s.registered[code]))
	copy(events, s.registered[code])
	s.mu.RUnlock()

	context.Type = code
	for _, e := range events {
		if e.callback(sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
