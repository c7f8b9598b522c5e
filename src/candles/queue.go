package candles

import "market-pipeline/src/models"

// -----------------------------------------------------------------------------
// candleQueue is a fixed-size circular buffer of pending candle submissions.
// True ring buffer - no resizing allowed! When full, pushing overwrites the
// oldest pending candle, which the dispatcher accounts for as a drop.
// -----------------------------------------------------------------------------

type candleQueue struct {
	data     []models.MMinuteCandle
	capacity int
	head     int // oldest element
	size     int
}

// -----------------------------------------------------------------------------

func newCandleQueue(capacity int) *candleQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &candleQueue{
		data:     make([]models.MMinuteCandle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Push appends a candle. The second return is true when the queue was full
// and the oldest pending candle was overwritten; that candle is returned.
func (q *candleQueue) Push(candle models.MMinuteCandle) (models.MMinuteCandle, bool) {
	if q.size == q.capacity {
		dropped := q.data[q.head]
		q.data[q.head] = candle
		q.head = (q.head + 1) % q.capacity
		return dropped, true
	}

	q.data[(q.head+q.size)%q.capacity] = candle
	q.size++
	return models.MMinuteCandle{}, false
}

// -----------------------------------------------------------------------------

// Pop removes and returns the oldest candle.
func (q *candleQueue) Pop() (models.MMinuteCandle, bool) {
	if q.size == 0 {
		return models.MMinuteCandle{}, false
	}
	candle := q.data[q.head]
	q.head = (q.head + 1) % q.capacity
	q.size--
	return candle, true
}

// -----------------------------------------------------------------------------

func (q *candleQueue) Len() int {
	return q.size
}
