package runner

import (
	"deripulse/logger"
	"deripulse/models"
	"deripulse/stream"
)

const collectLogEvery = 50

// Collector drains the tick channel into per-channel history and assigns
// the run-wide sequence numbers. It is the single consumer, which is what
// makes the sequence monotonic without any locking.
type Collector struct {
	ticks *stream.Channels
	log   *logger.Entry

	byChannel map[string][]models.TickRecord
	done      chan struct{}
}

func NewCollector(ticks *stream.Channels) *Collector {
	return &Collector{
		ticks:     ticks,
		log:       logger.GetLogger().WithComponent("collector"),
		byChannel: make(map[string][]models.TickRecord),
		done:      make(chan struct{}),
	}
}

// Start launches the drain loop. The loop ends when the tick channel is
// closed by the run coordinator.
func (c *Collector) Start() {
	go func() {
		defer close(c.done)

		var seq int64
		for tick := range c.ticks.Ticks {
			tick.Seq = seq
			seq++
			c.byChannel[tick.Channel] = append(c.byChannel[tick.Channel], tick)

			if seq%collectLogEvery == 0 {
				c.log.WithFields(logger.Fields{
					"ticks":    seq,
					"channels": len(c.byChannel),
				}).Info("tick collection progress")
			}
		}
	}()
}

// Wait blocks until the drain loop has finished and returns the collected
// history. Safe to call once after the tick channel is closed.
func (c *Collector) Wait() map[string][]models.TickRecord {
	<-c.done
	return c.byChannel
}
