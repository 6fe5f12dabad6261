package jobstore

import (
	"strconv"
	"sync/atomic"
	"time"
)

// FireIDGenerator produces fire instance ids, unique for the life of the
// generator.
type FireIDGenerator interface {
	NextFireID() string
}

// FireIDCounter renders an atomically incremented counter as decimal.
type FireIDCounter struct {
	n atomic.Int64
}

// NewFireIDCounter returns a counter whose first id is seed+1.
func NewFireIDCounter(seed int64) *FireIDCounter {
	c := &FireIDCounter{}
	c.n.Store(seed)
	return c
}

func (c *FireIDCounter) NextFireID() string {
	return strconv.FormatInt(c.n.Add(1), 10)
}

var processFireIDs = NewFireIDCounter(time.Now().UnixNano())

// DefaultFireIDs returns the process-wide counter, seeded from the clock at
// startup.
func DefaultFireIDs() FireIDGenerator {
	return processFireIDs
}
