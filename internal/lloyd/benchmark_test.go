package lloyd

import (
	"testing"

	"github.com/gogpu/colorcrunch/internal/kmath"
	"github.com/gogpu/colorcrunch/internal/parallel"
)

func benchmarkSource(n int) fakeSource {
	src := make(fakeSource, n)
	for i := range src {
		v := uint8(i % 256)
		src[i] = [3]uint8{v, uint8((i * 7) % 256), uint8((i * 13) % 256)}
	}
	return src
}

func BenchmarkIterateSequential(b *testing.B) {
	src := benchmarkSource(200_000)
	working := identity(src.Len())
	assignments := make([]uint32, src.Len())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		centers := []kmath.Vec3{{X: 0}, {X: 64}, {X: 128}, {X: 192}}
		Iterate(src, working, centers, assignments, nil)
	}
}

func BenchmarkIterateParallel(b *testing.B) {
	src := benchmarkSource(200_000)
	working := identity(src.Len())
	assignments := make([]uint32, src.Len())
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		centers := []kmath.Vec3{{X: 0}, {X: 64}, {X: 128}, {X: 192}}
		Iterate(src, working, centers, assignments, pool)
	}
}
