package scopestack

import (
	"runtime"
	"testing"
)

type benchRecord struct {
	ID   int64
	Data [56]byte // 64 bytes total
}

type benchHandle struct {
	fd int64
}

func (h *benchHandle) Destroy() {
	h.fd = -1
}

// BenchmarkRealisticUsage compares per-request scopes with heap allocation
// and periodic collection.
func BenchmarkRealisticUsage(b *testing.B) {
	// Many small buffers released at the end of each request.
	b.Run("ManySmallAllocs/Scoped", func(b *testing.B) {
		a := newTestAllocator(b, 64*1024)
		root := NewScratch(a)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			req := root.Child()
			for j := 0; j < 100; j++ {
				if _, err := NewSlice[byte](req, 64); err != nil {
					b.Fatal(err)
				}
			}
			_ = req.Close()
		}
	})

	b.Run("ManySmallAllocs/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			objects := make([][]byte, 100)
			for j := 0; j < 100; j++ {
				objects[j] = make([]byte, 64)
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	b.Run("StructAllocs/Scoped", func(b *testing.B) {
		a := newTestAllocator(b, 64*1024)
		root := NewScratch(a)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			req := root.Child()
			for j := 0; j < 50; j++ {
				if _, err := New(req, benchRecord{ID: int64(j)}); err != nil {
					b.Fatal(err)
				}
			}
			_ = req.Close()
		}
	})

	b.Run("StructAllocs/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			structs := make([]*benchRecord, 50)
			for j := 0; j < 50; j++ {
				structs[j] = &benchRecord{ID: int64(j)}
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	// Objects with cleanup: the scope runs destructors on close, the
	// builtin variant calls them by hand.
	b.Run("Destructors/Scoped", func(b *testing.B) {
		a := newTestAllocator(b, 64*1024)
		root := NewScratch(a)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			req := root.Child()
			for j := 0; j < 50; j++ {
				if _, err := New(req, benchHandle{fd: int64(j)}); err != nil {
					b.Fatal(err)
				}
			}
			_ = req.Close()
		}
	})

	b.Run("Destructors/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			handles := make([]*benchHandle, 50)
			for j := 0; j < 50; j++ {
				handles[j] = &benchHandle{fd: int64(j)}
			}
			for j := len(handles) - 1; j >= 0; j-- {
				handles[j].Destroy()
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	b.Run("BufferReuse/Scoped", func(b *testing.B) {
		a := newTestAllocator(b, 1024*1024)
		root := NewScratch(a)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			req := root.Child()
			for j := 0; j < 10; j++ {
				buf1, _ := NewSlice[byte](req, 1024)
				buf2, _ := NewSlice[byte](req, 2048)
				buf3, _ := NewSlice[byte](req, 512)

				buf1[0] = byte(j)
				buf2[0] = byte(j)
				buf3[0] = byte(j)
			}
			_ = req.Close()
		}
	})

	b.Run("BufferReuse/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			buffers := make([][]byte, 30)
			for j := 0; j < 10; j++ {
				buffers[j*3] = make([]byte, 1024)
				buffers[j*3+1] = make([]byte, 2048)
				buffers[j*3+2] = make([]byte, 512)

				buffers[j*3][0] = byte(j)
				buffers[j*3+1][0] = byte(j)
				buffers[j*3+2][0] = byte(j)
			}
			if i%5 == 0 {
				runtime.GC()
			}
		}
	})

	b.Run("NoGCPressure/Linear", func(b *testing.B) {
		a := newTestAllocator(b, 1024*1024)
		start := a.Peek()
		runtime.GC()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := a.AllocBytes(128, 8); err != nil {
				b.Fatal(err)
			}
			if i%1000 == 999 {
				a.rewind(start)
			}
		}
	})

	b.Run("NoGCPressure/Builtin", func(b *testing.B) {
		runtime.GC()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = make([]byte, 128)
		}
	})
}
