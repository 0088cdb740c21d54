package membership

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/torua/internal/obs"
)

// updateSlot holds at most one outstanding RPC. originalAckedVersion is the
// subscriber's ack before this slot's RPC started, restored on timeout,
// cancellation, or a PushNotUp race.
type updateSlot struct {
	active bool

	subscriberID         ServerId
	originalAckedVersion uint64
	message              WireMessage
	startedAt            time.Time

	cancel context.CancelFunc
	done   chan pushOutcome
}

type pushOutcome struct {
	result PushResult
	err    error
}

// Dispatcher is the registry's E component: a single background worker
// driving a fixed set of concurrent update slots, a scanning cursor over
// the table, RPC timeout enforcement, cancellation on shutdown, and
// quiescence signalling.
type Dispatcher struct {
	reg *Registry

	pusher Pusher
	config Config
	logger *zap.Logger
	metrics *obs.Metrics

	slots []updateSlot

	// scan cursor state, protected by reg.mu.
	searchIndex        uint32
	minAckObserved     uint64
	noUpdatesFoundHint bool

	stopCh chan struct{}
	doneCh chan struct{}
	err    error
}

func newDispatcher(reg *Registry, pusher Pusher, cfg Config, logger *zap.Logger, metrics *obs.Metrics) *Dispatcher {
	n := cfg.ConcurrentRPCs
	if n <= 0 {
		n = DefaultConcurrentRPCs
	}
	return &Dispatcher{
		reg:     reg,
		pusher:  pusher,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		slots:   make([]updateSlot, n),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the dispatcher's background worker. It is safe to call at
// most once per Dispatcher.
func (d *Dispatcher) Start() {
	d.doneCh = make(chan struct{})
	d.logger.Info("dispatcher starting", zap.Int("concurrent_rpcs", len(d.slots)))
	go d.run()
}

// Stop cancels every outstanding RPC, restores their acks, and joins the
// worker. After Stop returns the cluster may be behind: callers wanting
// consistency must call Sync before Stop.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.reg.mu.Lock()
	d.reg.hasUpdatesOrStop.Broadcast()
	d.reg.mu.Unlock()
	<-d.doneCh
	d.logger.Info("dispatcher stopped")
}

// Err returns the cause of a DispatcherFatal failure, or nil while healthy.
func (d *Dispatcher) Err() error {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	return d.err
}

func (d *Dispatcher) stopped() bool {
	select {
	case <-d.stopCh:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("membership: dispatcher fatal: %v", r)
			d.logger.Error("dispatcher fatal", zap.Any("panic", r))
			d.reg.mu.Lock()
			d.err = err
			d.reg.mu.Unlock()
		}
	}()

	for {
		if d.stopped() {
			d.drainAll()
			return
		}

		progressed := false
		for i := range d.slots {
			if d.progressSlot(i) {
				progressed = true
			}
		}
		d.metrics.SetInflight(d.activeCount())

		if progressed {
			continue
		}
		if d.anyActive() {
			// A slot is outstanding but neither done nor timed out yet;
			// a short backoff avoids busy-spinning on the channel poll.
			time.Sleep(time.Millisecond)
			continue
		}

		d.reg.mu.Lock()
		if !d.hasUpdatesLocked() && !d.stopped() {
			d.maybeSignalQuiescenceLocked()
			d.reg.hasUpdatesOrStop.Wait()
		}
		d.reg.mu.Unlock()
	}
}

func (d *Dispatcher) anyActive() bool {
	return d.activeCount() > 0
}

func (d *Dispatcher) activeCount() int {
	n := 0
	for i := range d.slots {
		if d.slots[i].active {
			n++
		}
	}
	return n
}

// progressSlot advances slot i by one step: harvesting a completed RPC,
// timing out a stale one, or loading the next update into an idle slot.
// Returns true if it made progress (completed, timed out, or started work).
func (d *Dispatcher) progressSlot(i int) bool {
	s := &d.slots[i]

	if s.active {
		select {
		case outcome := <-s.done:
			d.finishSlot(i, outcome)
			return true
		default:
		}

		if time.Since(s.startedAt) > d.config.RPCTimeout {
			d.timeoutSlot(i)
			return true
		}
		return false
	}

	return d.loadNextUpdate(i)
}

func (d *Dispatcher) finishSlot(i int, outcome pushOutcome) {
	s := &d.slots[i]
	s.cancel()

	newAck := s.message.VersionNumber
	result := "ok"
	if outcome.err != nil {
		newAck = s.originalAckedVersion
		result = "timeout"
		d.logger.Debug("push errored, restoring ack",
			zap.Stringer("subscriber", s.subscriberID), zap.Error(outcome.err))
	} else if outcome.result == PushNotUp {
		newAck = s.originalAckedVersion
		result = "not_up"
		d.logger.Info("subscriber reported not up, restoring ack", zap.Bool("notice", true),
			zap.Stringer("subscriber", s.subscriberID))
	}
	d.metrics.ObserveRPCResult(result)

	subscriber := s.subscriberID
	*s = updateSlot{}

	d.reg.mu.Lock()
	d.reg.ackEntryLocked(subscriber, newAck)
	d.reg.mu.Unlock()
}

func (d *Dispatcher) timeoutSlot(i int) {
	s := &d.slots[i]
	s.cancel()
	subscriber := s.subscriberID
	originalAck := s.originalAckedVersion
	*s = updateSlot{}

	d.logger.Debug("rpc timed out, restoring ack", zap.Stringer("subscriber", subscriber))
	d.metrics.ObserveRPCResult("timeout")

	d.reg.mu.Lock()
	d.reg.ackEntryLocked(subscriber, originalAck)
	d.reg.mu.Unlock()
}

// loadNextUpdate pulls the next eligible subscriber off the scan cursor and
// starts an RPC for it. Returns true if it started work.
func (d *Dispatcher) loadNextUpdate(slotIndex int) bool {
	d.reg.mu.Lock()
	if !d.hasUpdatesLocked() {
		d.reg.mu.Unlock()
		return false
	}

	index := d.searchIndex
	entry := d.reg.table.slots[index].entry
	subscriberID := entry.ID
	originalAck := entry.AckedVersion
	entry.InFlight = true

	d.searchIndex = (index + 1) % uint32(d.reg.table.Size())

	var msg WireMessage
	if originalAck == 0 {
		msg = d.reg.log.BuildSnapshot(ServiceMaster | ServiceBackup)
	} else {
		delta, ok := d.reg.log.deltaForVersion(originalAck + 1)
		if !ok {
			// Queue has been pruned past what this subscriber needs;
			// fall back to a full snapshot rather than violate §9's
			// invariant 7.
			msg = d.reg.log.BuildSnapshot(ServiceMaster | ServiceBackup)
		} else {
			msg = delta
		}
	}
	d.reg.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.config.RPCTimeout)
	done := make(chan pushOutcome, 1)

	s := &d.slots[slotIndex]
	s.active = true
	s.subscriberID = subscriberID
	s.originalAckedVersion = originalAck
	s.message = msg
	s.startedAt = time.Now()
	s.cancel = cancel
	s.done = done

	go func() {
		result, err := d.pusher.Push(ctx, subscriberID, msg)
		done <- pushOutcome{result: result, err: err}
	}()

	return true
}

// hasUpdatesLocked is the scan heart: it walks the table from searchIndex
// (wrapping), pruning the update queue whenever the walk crosses index 0,
// and stops at the first eligible, behind-version, not-in-flight MEMBERSHIP
// subscriber. Caller must hold reg.mu.
func (d *Dispatcher) hasUpdatesLocked() bool {
	if d.noUpdatesFoundHint {
		return false
	}

	size := d.reg.table.Size()
	if size <= 1 {
		d.noUpdatesFoundHint = true
		return false
	}

	start := d.searchIndex
	if int(start) >= size {
		start = 0
	}

	i := start
	for {
		if i == 0 {
			d.reg.log.PruneUpdates(d.minAckObserved)
			d.metrics.SetQueueDepth(len(d.reg.log.queue))
			d.minAckObserved = 0
		}

		e := d.reg.table.slots[i].entry
		if e != nil && e.Status == StatusUp && e.Services.Has(ServiceMembership) {
			if e.AckedVersion != 0 && (d.minAckObserved == 0 || e.AckedVersion < d.minAckObserved) {
				d.minAckObserved = e.AckedVersion
			}
			if e.AckedVersion != d.reg.log.Version() && !e.InFlight {
				d.searchIndex = i
				return true
			}
		}

		i = (i + 1) % uint32(size)
		if i == start {
			break
		}
	}

	d.noUpdatesFoundHint = true
	return false
}

// maybeSignalQuiescenceLocked broadcasts listUpToDate when no eligible
// entry is behind and no slot is active. Caller must hold reg.mu.
func (d *Dispatcher) maybeSignalQuiescenceLocked() {
	if d.anyActive() {
		return
	}
	for i := 1; i < d.reg.table.Size(); i++ {
		e := d.reg.table.slots[i].entry
		if e != nil && e.Status == StatusUp && e.Services.Has(ServiceMembership) {
			if e.AckedVersion != d.reg.log.Version() || e.InFlight {
				return
			}
		}
	}
	d.logger.Debug("quiescence reached", zap.Uint64("version", d.reg.log.Version()))
	d.reg.listUpToDate.Broadcast()
}

// drainAll cancels every active slot on shutdown and restores their acks.
func (d *Dispatcher) drainAll() {
	for i := range d.slots {
		s := &d.slots[i]
		if !s.active {
			continue
		}
		s.cancel()
		subscriber := s.subscriberID
		originalAck := s.originalAckedVersion
		*s = updateSlot{}

		d.reg.mu.Lock()
		d.reg.ackEntryLocked(subscriber, originalAck)
		d.reg.mu.Unlock()
	}
}
