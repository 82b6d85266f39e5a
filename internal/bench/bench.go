// Package bench compares heap boxing with scope stack allocation for
// plain and destructible objects of several sizes.
package bench

import (
	"runtime"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/scopestack"
	"golang.org/x/exp/slog"
)

// Timing is the mean cost of each phase per object, in nanoseconds.
type Timing struct {
	AllocNs   float64 `json:"alloc_ns"`
	IterNs    float64 `json:"iter_ns"`
	DestroyNs float64 `json:"destroy_ns"`
}

func (t *Timing) add(o Timing) {
	t.AllocNs += o.AllocNs
	t.IterNs += o.IterNs
	t.DestroyNs += o.DestroyNs
}

func (t *Timing) scale(f float64) {
	t.AllocNs *= f
	t.IterNs *= f
	t.DestroyNs *= f
}

// Result holds the timings for one object size.
type Result struct {
	Size      int    `json:"size"`
	NaivePOD  Timing `json:"naive_pod"`
	NaiveObj  Timing `json:"naive_obj"`
	ScopedPOD Timing `json:"scoped_pod"`
	ScopedObj Timing `json:"scoped_obj"`
}

// Config controls a run.
type Config struct {
	Count  int // objects allocated per round
	Rounds int // rounds averaged per strategy
	Logger *slog.Logger
}

// DefaultConfig returns the settings used by the CLI.
func DefaultConfig() Config {
	return Config{Count: 10000, Rounds: 5}
}

// Run measures every object size in turn.
func Run(cfg Config) ([]Result, error) {
	if cfg.Count <= 0 || cfg.Rounds <= 0 {
		return nil, errors.Newf("bench: count %d and rounds %d must be positive", cfg.Count, cfg.Rounds)
	}
	sizes := []func(Config) (Result, error){
		run[[8]uint64],
		run[[16]uint64],
		run[[32]uint64],
		run[[64]uint64],
		run[[128]uint64],
	}
	results := make([]Result, 0, len(sizes))
	for _, fn := range sizes {
		r, err := fn(cfg)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// obj wraps a payload in a type that needs cleanup.
type obj[P any] struct {
	payload P
}

func (o *obj[P]) Destroy() {
	sink += first(&o.payload)
}

// sink keeps the compiler from discarding iteration and destructor work.
var sink uint64

// first reads the leading word of v. Every payload is a uint64 array.
func first[T any](v *T) uint64 {
	return *(*uint64)(unsafe.Pointer(v))
}

func run[P any](cfg Config) (Result, error) {
	var zero P
	size := int(unsafe.Sizeof(zero))
	res := Result{Size: size}

	// Room for every object plus its chain node and padding.
	a, err := scopestack.NewLinearAllocator(cfg.Count*(size+64)+scopestack.CacheLineSize,
		scopestack.WithLogger(cfg.Logger))
	if err != nil {
		return res, err
	}
	defer a.Release()

	for round := 0; round < cfg.Rounds; round++ {
		res.NaivePOD.add(naive[P](cfg.Count))
		res.NaiveObj.add(naive[obj[P]](cfg.Count))

		t, err := scoped[P](a, cfg.Count)
		if err != nil {
			return res, errors.Wrapf(err, "scoped pod, size %d", size)
		}
		res.ScopedPOD.add(t)

		t, err = scoped[obj[P]](a, cfg.Count)
		if err != nil {
			return res, errors.Wrapf(err, "scoped obj, size %d", size)
		}
		res.ScopedObj.add(t)
	}

	f := 1 / float64(cfg.Rounds*cfg.Count)
	for _, t := range []*Timing{&res.NaivePOD, &res.NaiveObj, &res.ScopedPOD, &res.ScopedObj} {
		t.scale(f)
	}
	if cfg.Logger != nil {
		cfg.Logger.Debug("measured object size", slog.Int("size", size), slog.Int("peak", a.Peak()))
	}
	return res, nil
}

// naive boxes every object on the Go heap. Destruction calls Destroy where
// present and forces a collection to reclaim the boxes.
func naive[T any](n int) Timing {
	boxes := make([]*T, 0, n)

	start := time.Now()
	for i := 0; i < n; i++ {
		boxes = append(boxes, new(T))
	}
	alloc := time.Since(start)

	start = time.Now()
	var sum uint64
	for _, b := range boxes {
		sum += first(b)
	}
	iter := time.Since(start)
	sink += sum

	start = time.Now()
	for i := len(boxes) - 1; i >= 0; i-- {
		if d, ok := any(boxes[i]).(scopestack.Destroyer); ok {
			d.Destroy()
		}
		boxes[i] = nil
	}
	runtime.GC()
	destroy := time.Since(start)

	return Timing{
		AllocNs:   float64(alloc.Nanoseconds()),
		IterNs:    float64(iter.Nanoseconds()),
		DestroyNs: float64(destroy.Nanoseconds()),
	}
}

func scoped[T any](a *scopestack.LinearAllocator, n int) (Timing, error) {
	s := scopestack.NewScratch(a)
	refs := make([]scopestack.Ref[T], 0, n)

	var zero T
	start := time.Now()
	for i := 0; i < n; i++ {
		r, err := scopestack.New(s, zero)
		if err != nil {
			_ = s.Close()
			return Timing{}, err
		}
		refs = append(refs, r)
	}
	alloc := time.Since(start)

	start = time.Now()
	var sum uint64
	for _, r := range refs {
		sum += first(r.Get())
	}
	iter := time.Since(start)
	sink += sum

	start = time.Now()
	if err := s.Close(); err != nil {
		return Timing{}, err
	}
	destroy := time.Since(start)

	return Timing{
		AllocNs:   float64(alloc.Nanoseconds()),
		IterNs:    float64(iter.Nanoseconds()),
		DestroyNs: float64(destroy.Nanoseconds()),
	}, nil
}
