package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	// awaitWindow bounds how long a chat message waits for its redemption
	// event when the message arrives first.
	awaitWindow = 5 * time.Second
	// knownTTL bounds how long an unclaimed text-reward redemption stays in
	// the known table when its chat message never arrives.
	knownTTL = time.Minute
)

// Correlator pairs channel-point redemption events with the chat messages
// that carry their text. The two arrive on independent transports in either
// order, keyed by the reward ID (the custom-reward-id message tag).
//
// Message first: the message side parks in AwaitRedemption for up to five
// seconds; a matching event delivered within the window is handed over and
// never reaches the standalone path. Event first: a text-carrying event is
// stored and consumed by the next matching message (entries expire after a
// minute if none comes). Events for rewards without text input are never
// held back.
type Correlator struct {
	mu      sync.Mutex
	known   *ttlcache.Cache[string, PointRedemption]
	waiters map[string]chan PointRedemption
	window  time.Duration
}

func NewCorrelator() *Correlator {
	c := &Correlator{
		known: ttlcache.New[string, PointRedemption](
			ttlcache.WithTTL[string, PointRedemption](knownTTL),
		),
		waiters: make(map[string]chan PointRedemption),
		window:  awaitWindow,
	}
	go c.known.Start()
	return c
}

// Stop releases the expiry goroutine of the known-rewards table.
func (c *Correlator) Stop() {
	c.known.Stop()
}

// Offer feeds a redemption event in. It reports true when the event was
// claimed by a waiting message or parked for an imminent one; false means
// the caller should emit it as a standalone redemption message.
func (c *Correlator) Offer(r PointRedemption) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.waiters[r.Reward.ID]; ok {
		delete(c.waiters, r.Reward.ID)
		ch <- r
		return true
	}
	if r.Reward.RequiresText {
		c.known.Set(r.Reward.ID, r, ttlcache.DefaultTTL)
		return true
	}
	return false
}

// Await is the message-side half: it returns the redemption for rewardID,
// consuming a parked event immediately or blocking until one is offered.
// It returns nil when the window (or ctx) expires first; the message then
// renders without reward metadata.
func (c *Correlator) Await(ctx context.Context, rewardID string) *PointRedemption {
	c.mu.Lock()
	if item := c.known.Get(rewardID); item != nil {
		c.known.Delete(rewardID)
		c.mu.Unlock()
		r := item.Value()
		return &r
	}
	ch := make(chan PointRedemption, 1)
	c.waiters[rewardID] = ch
	c.mu.Unlock()

	timer := time.NewTimer(c.window)
	defer timer.Stop()
	select {
	case r := <-ch:
		return &r
	case <-timer.C:
	case <-ctx.Done():
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Offer may have delivered between the timeout firing and the lock.
	select {
	case r := <-ch:
		return &r
	default:
	}
	delete(c.waiters, rewardID)
	return nil
}
