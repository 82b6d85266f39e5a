package main

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/scopestack"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var demoCapacity int

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntVar(&demoCapacity, "capacity", 512, "Allocator capacity in bytes")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Allocate values and nested scopes, printing destruction order",
		Long: `The demo command allocates plain values and destructible objects from a
root scope and two nested scopes, printing the allocator cursor as scopes open
and close and the order in which destructors run.

Example:
  scopestack demo
  scopestack demo --capacity 256
  scopestack demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr()), demoCapacity)
		},
	}
	return cmd
}

// out receives destructor output while a demo runs. Destructible values
// live in the allocator's block and cannot carry a writer themselves.
var out printer

type vec3[T any] struct {
	X, Y, Z T
}

type dropA struct {
	Dummy uint8
}

func (d *dropA) Destroy() {
	out.Printf("Drop A\n")
}

type dropB struct {
	Dummy [2]uint64
}

func (d *dropB) Destroy() {
	out.Printf("Drop B\n")
}

type dropC struct {
	Dummy uint32
}

func (d *dropC) Destroy() {
	out.Printf("Drop C\n")
}

// tripleA destroys its fields in declaration order.
type tripleA vec3[dropA]

func (t *tripleA) Destroy() {
	t.X.Destroy()
	t.Y.Destroy()
	t.Z.Destroy()
}

type demoSummary struct {
	Cursors []int                      `json:"cursors"`
	Metrics scopestack.AllocatorMetrics `json:"metrics"`
}

func runDemo(w io.Writer, logger *slog.Logger, capacity int) error {
	out = printer{w: w}
	if jsonOut {
		// Keep stdout clean for the JSON document.
		out = printer{w: io.Discard}
	}

	a, err := scopestack.NewLinearAllocator(capacity, scopestack.WithLogger(logger))
	if err != nil {
		return err
	}
	defer a.Release()

	var summary demoSummary
	peek := func() {
		off := a.Peek().Offset()
		summary.Cursors = append(summary.Cursors, off)
		out.Printf("peek %d\n", off)
	}

	global := scopestack.NewScratch(a)
	x, err := newIn(global, -1.0)
	if err != nil {
		return err
	}
	y, err := newIn(global, int64(1))
	if err != nil {
		return err
	}
	out.Printf("a %v b %v\n", *x, *y)
	*x += 1.0
	*y += 2
	out.Printf("a %v b %v\n", *x, *y)

	c, err := newIn(global, vec3[float64]{})
	if err != nil {
		return err
	}
	d, err := newIn(global, tripleA{X: dropA{0xAB}, Y: dropA{0xCD}, Z: dropA{0xDF}})
	if err != nil {
		return err
	}
	out.Printf("a %v b %v c %+v d %+v\n", *x, *y, *c, *d)
	peek()

	if err := demoScope(global, 0xFF, vec3[int64]{0, 1, 2}, peek, func(scope *scopestack.Scratch) error {
		return demoScope(scope, 0xAA, vec3[int64]{3, 4, 5}, peek, nil)
	}); err != nil {
		return err
	}
	peek()

	if err := global.Close(); err != nil {
		return err
	}
	peek()

	if jsonOut {
		summary.Metrics = a.Metrics()
		return printJSON(w, summary)
	}
	return nil
}

// demoScope opens a child of parent, fills it, runs nested inside it and
// closes it again.
func demoScope(parent *scopestack.Scratch, fill uint8, v vec3[int64], peek func(), nested func(*scopestack.Scratch) error) error {
	scope := parent.Child()
	defer scope.Close()

	a, err := newIn(scope, dropA{Dummy: fill})
	if err != nil {
		return err
	}
	b, err := newIn(scope, dropB{Dummy: [2]uint64{uint64(fill), uint64(fill)}})
	if err != nil {
		return err
	}
	c, err := newIn(scope, dropC{Dummy: uint32(fill) * 0x01010101})
	if err != nil {
		return err
	}
	d, err := newIn(scope, v)
	if err != nil {
		return err
	}
	out.Printf("a %d b %d c %d d %+v\n", a.Dummy, b.Dummy[0], c.Dummy, *d)
	peek()

	if nested != nil {
		if err := nested(scope); err != nil {
			return err
		}
	}
	return scope.Close()
}

func newIn[T any](s *scopestack.Scratch, v T) (*T, error) {
	r, err := scopestack.New(s, v)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %T", v)
	}
	return r.Get(), nil
}
