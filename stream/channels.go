package stream

import (
	"context"
	"sync"

	"deripulse/logger"
	"deripulse/models"
)

// ChannelStats counts traffic through the tick channel.
type ChannelStats struct {
	Sent    int64
	Dropped int64
}

// Channels carries tick records from the sessions to the collector. Sends
// never block: a full buffer drops the tick and counts the drop, so a slow
// collector cannot stall a receive loop.
type Channels struct {
	Ticks chan models.TickRecord

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(tickBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Ticks: make(chan models.TickRecord, tickBufferSize),
		log:   log,
	}

	log.WithComponent("tick_channels").WithFields(logger.Fields{
		"tick_buffer_size": tickBufferSize,
	}).Info("tick channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Ticks)
	c.log.WithComponent("tick_channels").Info("tick channels closed")
}

// SendTick forwards one tick record without blocking. It returns false when
// the context is done or the buffer is full.
func (c *Channels) SendTick(ctx context.Context, tick models.TickRecord) bool {
	select {
	case c.Ticks <- tick:
		c.statsMutex.Lock()
		c.stats.Sent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.Dropped++
		c.statsMutex.Unlock()
		logger.IncrementTickDropped()
		return false
	}
}

func (c *Channels) Stats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
