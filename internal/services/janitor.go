package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper drops conversations idle for longer than ttl.
type Sweeper interface {
	Sweep(now time.Time, ttl time.Duration) int
}

// SessionJanitor periodically expires in-memory conversations. The Redis
// store expires keys on its own and does not need one.
type SessionJanitor struct {
	sweeper  Sweeper
	ttl      time.Duration
	interval time.Duration
	log      logrus.FieldLogger
	started  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewSessionJanitor(sweeper Sweeper, ttl, interval time.Duration, log logrus.FieldLogger) *SessionJanitor {
	return &SessionJanitor{
		sweeper:  sweeper,
		ttl:      ttl,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (j *SessionJanitor) Start() {
	if j.sweeper == nil || j.interval <= 0 {
		return
	}
	j.started = true
	go j.loop()
	j.log.WithField("interval", j.interval).Info("session janitor started")
}

// Stop ends the loop and waits for an in-progress sweep to finish. Safe to
// call more than once, and before Start.
func (j *SessionJanitor) Stop() {
	select {
	case <-j.stopChan:
	default:
		close(j.stopChan)
	}
	if j.started {
		<-j.doneChan
	}
}

func (j *SessionJanitor) loop() {
	defer close(j.doneChan)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case now := <-ticker.C:
			j.sweepOnce(now)
		}
	}
}

func (j *SessionJanitor) sweepOnce(now time.Time) int {
	removed := j.sweeper.Sweep(now, j.ttl)
	if removed > 0 {
		j.log.WithField("removed", removed).Info("expired idle conversations")
	}
	return removed
}
