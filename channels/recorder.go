package channels

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
)

// Recorder is an optional archival sink that writes submitted burst
// buffers to FITS files on disk, one file per channel per burst, grouped
// into a per-day folder. It is adapted from a 2-D camera-frame recorder
// into a 1-D waveform-burst recorder: each call writes one more burst
// instead of one more image frame.
type Recorder struct {
	mu sync.Mutex

	Root    string
	Prefix  string
	Enabled bool

	dayFldr string
	counter int
}

// NewRecorder returns an enabled recorder rooted at root, naming files
// with prefix.
func NewRecorder(root, prefix string) *Recorder {
	return &Recorder{Root: root, Prefix: prefix, Enabled: true}
}

func (r *Recorder) updateFolder() string {
	day := time.Now().Format("2006-01-02")
	if day != r.dayFldr {
		r.dayFldr = day
		r.counter = 0
	}
	return filepath.Join(r.Root, r.dayFldr)
}

func (r *Recorder) mkDir() (string, error) {
	dir := r.updateFolder()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteBurst archives one burst's worth of samples for channel as a
// single-row FITS image. It is a no-op when the recorder is disabled.
func (r *Recorder) WriteBurst(channel int, samples []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Enabled {
		return nil
	}
	dir, err := r.mkDir()
	if err != nil {
		return err
	}
	name := filepath.Join(dir, fmt.Sprintf("%s_ch%02d_%05d.fits", r.Prefix, channel, r.counter))
	r.counter++

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	fitsFile, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer fitsFile.Close()

	img := fitsio.NewImage(64, []int{len(samples)})
	defer img.Close()
	if err := img.Write(samples); err != nil {
		return err
	}
	return fitsFile.Write(img)
}
