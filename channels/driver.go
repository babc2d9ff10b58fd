// Package channels implements the downstream data-submission collaborator
// (§6.3): a per-channel allocate/submit primitive an adapter's
// ProcessBurstData implementation uses to push sample buffers onward,
// gated by the controller's allowing_data flag and guarded against
// concurrent submission on the same channel.
package channels

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/snksoft/crc"

	"github.jpl.nasa.gov/bdube/transrec/workqueue"
)

// Dtype tags the sample representation of an allocated Buffer. Only the
// float64 backing store is implemented; Dtype is retained so CRC/recording
// metadata can describe what the samples actually were.
type Dtype int

const (
	// Float64 samples.
	Float64 Dtype = iota
	// Float32 samples, stored widened to float64 internally.
	Float32
	// Int16 samples, stored widened to float64 internally.
	Int16
)

// Buffer is the opaque handle returned by Allocate.
type Buffer struct {
	dtype   Dtype
	samples []float64
}

// Samples exposes the backing slice for in-place fill by the adapter.
func (b *Buffer) Samples() []float64 { return b.samples }

// Meta is the per-submission metadata recorded alongside a buffer: the
// identifiers the adapter supplied plus a CRC-32 integrity checksum of the
// raw sample bytes, computed the way a digitizer driver would sanity-check
// data DMA'd out of a hardware FIFO.
type Meta struct {
	Channel     int
	UniqueID    uint64
	Timestamp   float64
	WallClockTS float64
	CRC32       uint32
	NumSamples  int
}

// CompletionFunc runs with the Driver's own lock held; it may mutate meta or
// return false to inhibit delivery.
type CompletionFunc func(meta *Meta, buf *Buffer) (deliver bool)

var crcTable = crc.NewTable(crc.CRC32)

// Driver is the channels collaborator. allowingData is consulted on every
// Submit, the same flag the acquisition thread gates its own burst pushes
// on, both read under the owning controller's lock via the closure supplied
// at construction.
type Driver struct {
	mu           sync.Mutex
	numChannels  int
	allowingData func() bool
	busy         []bool

	recorder *Recorder
	writes   *workqueue.Queue
	taskID   uint64

	lastMeta []Meta // most recent submission per channel, for introspection
}

// NewDriver returns a Driver sized for numChannels, gating Submit on
// allowingData(). recorder may be nil to disable archival. Archival writes
// run on a dedicated worker queue so a slow disk never stalls the
// acquisition thread's Submit call.
func NewDriver(numChannels int, allowingData func() bool, recorder *Recorder) *Driver {
	return &Driver{
		numChannels:  numChannels,
		allowingData: allowingData,
		busy:         make([]bool, numChannels),
		lastMeta:     make([]Meta, numChannels),
		recorder:     recorder,
		writes:       workqueue.NewQueue(),
	}
}

// Close stops the archival worker queue, blocking until any in-flight
// write finishes. Call after the controller is done using the driver.
func (d *Driver) Close() {
	d.writes.Stop()
}

// Reset clears per-channel in-flight state at the start of a new arming.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.busy {
		d.busy[i] = false
	}
}

// Allocate returns a Buffer of numSamples samples of the given dtype.
func (d *Driver) Allocate(numSamples int, dtype Dtype) *Buffer {
	return &Buffer{dtype: dtype, samples: make([]float64, numSamples)}
}

// Submit delivers buf for channel, tagged with uniqueID/timestamp/
// wallClockTS. It is discarded silently (returns false, nil) when
// allowingData() is false. onComplete, if non-nil, runs with the Driver's
// own lock held and may inhibit delivery.
func (d *Driver) Submit(buf *Buffer, channel int, uniqueID uint64, timestamp, wallClockTS float64, onComplete CompletionFunc) (delivered bool, err error) {
	if !d.allowingData() {
		return false, nil
	}
	if channel < 0 || channel >= d.numChannels {
		return false, errInvalidChannel
	}

	d.mu.Lock()
	if d.busy[channel] {
		d.mu.Unlock()
		return false, errChannelBusy
	}
	d.busy[channel] = true
	defer func() {
		d.mu.Lock()
		d.busy[channel] = false
		d.mu.Unlock()
	}()

	meta := Meta{
		Channel:     channel,
		UniqueID:    uniqueID,
		Timestamp:   timestamp,
		WallClockTS: wallClockTS,
		CRC32:       checksum(buf.samples),
		NumSamples:  len(buf.samples),
	}

	deliver := true
	if onComplete != nil {
		deliver = onComplete(&meta, buf)
	}
	d.lastMeta[channel] = meta
	d.mu.Unlock()

	if deliver && d.recorder != nil {
		id := int(atomic.AddUint64(&d.taskID, 1))
		samples := buf.samples
		d.writes.Enqueue(workqueue.NewTask(id, func(int) {
			d.recorder.WriteBurst(channel, samples)
		}))
	}
	return deliver, nil
}

// LastMeta returns the most recent submission metadata recorded for
// channel, for tests and diagnostics.
func (d *Driver) LastMeta(channel int) Meta {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastMeta[channel]
}

func checksum(samples []float64) uint32 {
	buf := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(s))
	}
	return uint32(crcTable.CalculateCRC(buf))
}
