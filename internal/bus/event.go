package bus

import "time"

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds, grouped by namespace. Subscribers filter by prefix,
// e.g. "message." receives every store mutation.
const (
	KindMessageAdded   = "message.added"
	KindMessageUpdated = "message.updated"
	KindMessageCleared = "message.cleared"

	KindSessionConnectivity = "session.connectivity"
	KindSessionReset        = "session.reset"
	KindSessionBusy         = "session.busy"

	KindVoiceListening = "voice.listening"
	KindVoiceInterim   = "voice.interim"
	KindVoiceFinal     = "voice.final"
	KindVoiceError     = "voice.error"
	KindVoiceStopped   = "voice.stopped"

	KindUploadProgress = "upload.progress"
	KindUploadDone     = "upload.done"
	KindUploadFailed   = "upload.failed"

	KindSearchDone   = "search.done"
	KindSearchFailed = "search.failed"

	KindFlashInfo  = "flash.info"
	KindFlashError = "flash.error"
)
