package player

import "github.com/desertthunder/sonance/internal/models"

const eventBufferSize = 16

// StateChange carries a snapshot taken after a transport change.
type StateChange struct {
	State State
}

// TrackChange is emitted when the current track is replaced.
type TrackChange struct {
	Previous *models.Track
	Current  *models.Track
}

// QueueChange is emitted when the queue contents or index change.
type QueueChange struct {
	Tracks []models.Track
	Index  int
}

// ErrorEvent is emitted when a track fails to fetch or start.
type ErrorEvent struct {
	TrackID string
	Err     error
}

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StateChanged <-chan StateChange
	TrackChanged <-chan TrackChange
	QueueChanged <-chan QueueChange
	Error        <-chan ErrorEvent
	Done         <-chan struct{}

	stateCh chan StateChange
	trackCh chan TrackChange
	queueCh chan QueueChange
	errorCh chan ErrorEvent
	doneCh  chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh: make(chan StateChange, eventBufferSize),
		trackCh: make(chan TrackChange, eventBufferSize),
		queueCh: make(chan QueueChange, eventBufferSize),
		errorCh: make(chan ErrorEvent, eventBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.QueueChanged = s.queueCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
	}
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

func (s *Subscription) sendQueue(e QueueChange) {
	select {
	case s.queueCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
