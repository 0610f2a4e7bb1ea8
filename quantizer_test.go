package colorcrunch

import (
	"testing"

	"github.com/gogpu/colorcrunch/internal/compute/software"
)

func solidBuffer(t *testing.T, r, g, b uint8, n int) *PixelBuffer {
	t.Helper()
	data := make([]byte, n*3)
	for i := 0; i < n; i++ {
		data[i*3] = r
		data[i*3+1] = g
		data[i*3+2] = b
	}
	buf, err := NewPixelBuffer(data)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	return buf
}

// Scenario 1: N=1 pixel (128,128,128), K=4 -> K'=1, centers={(128,128,128)}.
func TestQuantizeSinglePixel(t *testing.T) {
	buf := solidBuffer(t, 128, 128, 128, 1)
	q, err := NewBuilder().SetMaxColors(4).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	if len(res.Centers) != 1 {
		t.Fatalf("K' = %d, want 1", len(res.Centers))
	}
	if res.Centers[0] != (Pixel8{128, 128, 128}) {
		t.Errorf("Centers[0] = %v, want (128,128,128)", res.Centers[0])
	}
	if len(res.Assignments) != 1 || res.Assignments[0] != 0 {
		t.Errorf("Assignments = %v, want [0]", res.Assignments)
	}
}

// Scenario 2: two-color image, 100 red + 100 blue pixels, K=2, seed=0.
func TestQuantizeTwoColorImage(t *testing.T) {
	data := make([]byte, 0, 600)
	for i := 0; i < 100; i++ {
		data = append(data, 255, 0, 0)
	}
	for i := 0; i < 100; i++ {
		data = append(data, 0, 0, 255)
	}
	buf, err := NewPixelBuffer(data)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}

	q, err := NewBuilder().SetMaxColors(2).SetSeed(0).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	if len(res.Centers) != 2 {
		t.Fatalf("K' = %d, want 2", len(res.Centers))
	}

	want := map[Pixel8]bool{{255, 0, 0}: true, {0, 0, 255}: true}
	for _, c := range res.Centers {
		if !want[c] {
			t.Errorf("unexpected center %v", c)
		}
	}
	if res.Centers[0] == res.Centers[1] {
		t.Fatal("centers should be distinct")
	}

	redIdx := res.Assignments[0]
	blueIdx := res.Assignments[100]
	if redIdx == blueIdx {
		t.Fatal("red and blue pixels share a palette index")
	}
	for i := 0; i < 100; i++ {
		if res.Assignments[i] != redIdx {
			t.Errorf("assignment[%d] = %d, want %d (red)", i, res.Assignments[i], redIdx)
		}
	}
	for i := 100; i < 200; i++ {
		if res.Assignments[i] != blueIdx {
			t.Errorf("assignment[%d] = %d, want %d (blue)", i, res.Assignments[i], blueIdx)
		}
	}
}

// Scenario 3: uniform image (50,50,50) x1000, K=8 -> K'=1, center=(50,50,50).
func TestQuantizeUniformImage(t *testing.T) {
	buf := solidBuffer(t, 50, 50, 50, 1000)
	q, err := NewBuilder().SetMaxColors(8).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	if len(res.Centers) != 1 {
		t.Fatalf("K' = %d, want 1", len(res.Centers))
	}
	if res.Centers[0] != (Pixel8{50, 50, 50}) {
		t.Errorf("Centers[0] = %v, want (50,50,50)", res.Centers[0])
	}
	for i, a := range res.Assignments {
		if a != 0 {
			t.Fatalf("assignments[%d] = %d, want 0", i, a)
		}
	}
}

// Scenario 5: K=1 on any non-empty buffer -> center = componentwise mean.
func TestQuantizeSingleClusterIsMean(t *testing.T) {
	data := []byte{0, 0, 0, 100, 100, 100, 255, 255, 255}
	buf, err := NewPixelBuffer(data)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	q, err := NewBuilder().SetMaxColors(1).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	if len(res.Centers) != 1 {
		t.Fatalf("K' = %d, want 1", len(res.Centers))
	}
	want := Pixel8{R: 118, G: 118, B: 118} // round((0+100+255)/3) = round(118.33) = 118
	if res.Centers[0] != want {
		t.Errorf("Centers[0] = %v, want %v", res.Centers[0], want)
	}
	for _, a := range res.Assignments {
		if a != 0 {
			t.Fatalf("assignments should all be 0, got %v", res.Assignments)
		}
	}
}

// Scenario 6: maxIterations=1 stops after exactly one iteration.
func TestQuantizeMaxIterationsOne(t *testing.T) {
	buf := solidBuffer(t, 10, 20, 30, 50)
	q, err := NewBuilder().SetMaxColors(3).SetMaxIterations(1).SetTolerance(0).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
}

// P1: |assignments| = N and every entry in [0, K').
func TestQuantizeAssignmentsInRange(t *testing.T) {
	buf := solidBuffer(t, 1, 2, 3, 37)
	q, err := NewBuilder().SetMaxColors(5).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	if len(res.Assignments) != buf.Len() {
		t.Fatalf("len(Assignments) = %d, want %d", len(res.Assignments), buf.Len())
	}
	for _, a := range res.Assignments {
		if int(a) >= len(res.Centers) {
			t.Fatalf("assignment %d out of range [0, %d)", a, len(res.Centers))
		}
	}
}

// P2: every surviving cluster has at least one assigned pixel.
func TestQuantizeNoEmptyClustersSurvive(t *testing.T) {
	data := make([]byte, 0)
	for i := 0; i < 4; i++ {
		v := byte(i * 60)
		for j := 0; j < 20; j++ {
			data = append(data, v, v, v)
		}
	}
	buf, err := NewPixelBuffer(data)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	q, err := NewBuilder().SetMaxColors(16).SetSeed(7).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	res, err := q.QuantizeImage(buf)
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	seen := make([]bool, len(res.Centers))
	for _, a := range res.Assignments {
		seen[a] = true
	}
	for k, ok := range seen {
		if !ok {
			t.Errorf("cluster %d has no assigned pixel", k)
		}
	}
	if len(res.Sizes) != len(res.Centers) {
		t.Fatalf("len(Sizes) = %d, want %d", len(res.Sizes), len(res.Centers))
	}
	for k, sz := range res.Sizes {
		if sz == 0 {
			t.Errorf("Sizes[%d] = 0, want > 0", k)
		}
	}
}

// P4: determinism on the CPU backend.
func TestQuantizeDeterministic(t *testing.T) {
	mkBuf := func() *PixelBuffer {
		data := make([]byte, 0, 300)
		for i := 0; i < 100; i++ {
			data = append(data, byte(i), byte(i*2%256), byte(i*3%256))
		}
		buf, err := NewPixelBuffer(data)
		if err != nil {
			t.Fatalf("NewPixelBuffer: %v", err)
		}
		return buf
	}

	q1, err := NewBuilder().SetMaxColors(6).SetSeed(123).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q1.Close()
	q2, err := NewBuilder().SetMaxColors(6).SetSeed(123).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q2.Close()

	r1, err := q1.QuantizeImage(mkBuf())
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}
	r2, err := q2.QuantizeImage(mkBuf())
	if err != nil {
		t.Fatalf("QuantizeImage: %v", err)
	}

	if len(r1.Centers) != len(r2.Centers) {
		t.Fatalf("K' differs: %d vs %d", len(r1.Centers), len(r2.Centers))
	}
	for i := range r1.Centers {
		if r1.Centers[i] != r2.Centers[i] {
			t.Errorf("Centers[%d] differ: %v vs %v", i, r1.Centers[i], r2.Centers[i])
		}
	}
	for i := range r1.Assignments {
		if r1.Assignments[i] != r2.Assignments[i] {
			t.Errorf("Assignments[%d] differ: %d vs %d", i, r1.Assignments[i], r2.Assignments[i])
		}
	}
}

// P7: sampleRate=1, initializer=Random, K=1 collapses to the mean
// regardless of seed.
func TestQuantizeRandomSingleClusterSeedIndependent(t *testing.T) {
	data := []byte{0, 0, 0, 50, 100, 150, 255, 200, 10}
	mk := func() *PixelBuffer {
		buf, err := NewPixelBuffer(data)
		if err != nil {
			t.Fatalf("NewPixelBuffer: %v", err)
		}
		return buf
	}

	var prev *QuantizationResult
	for _, seed := range []uint64{0, 1, 999} {
		q, err := NewBuilder().SetMaxColors(1).SetInitializer(Random).SetSeed(seed).Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		defer q.Close()
		res, err := q.QuantizeImage(mk())
		if err != nil {
			t.Fatalf("QuantizeImage: %v", err)
		}
		if prev != nil && res.Centers[0] != prev.Centers[0] {
			t.Errorf("seed=%d: center %v differs from previous %v", seed, res.Centers[0], prev.Centers[0])
		}
		prev = res
	}
}

// P5: CPU vs GPU centers agree within 1.0 per channel under identical inputs.
func TestQuantizeCPUvsGPUAgreement(t *testing.T) {
	data := make([]byte, 0, 300)
	for i := 0; i < 100; i++ {
		data = append(data, byte(i*2%256), byte((i*5+7)%256), byte((i*11+3)%256))
	}
	mk := func() *PixelBuffer {
		buf, err := NewPixelBuffer(data)
		if err != nil {
			t.Fatalf("NewPixelBuffer: %v", err)
		}
		return buf
	}

	cpu, err := NewBuilder().SetMaxColors(4).SetSeed(5).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer cpu.Close()
	adapter := software.New(nil)
	gpu, err := NewBuilder().SetMaxColors(4).SetSeed(5).SetAlgorithm(LloydGpu).SetAdapter(adapter).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer gpu.Close()

	cpuRes, err := cpu.QuantizeImage(mk())
	if err != nil {
		t.Fatalf("cpu QuantizeImage: %v", err)
	}
	gpuRes, err := gpu.QuantizeImage(mk())
	if err != nil {
		t.Fatalf("gpu QuantizeImage: %v", err)
	}

	if len(cpuRes.Centers) != len(gpuRes.Centers) {
		t.Fatalf("K' differs: cpu=%d gpu=%d", len(cpuRes.Centers), len(gpuRes.Centers))
	}
	for i := range cpuRes.Centers {
		c, g := cpuRes.Centers[i], gpuRes.Centers[i]
		if absDiff(c.R, g.R) > 1 || absDiff(c.G, g.G) > 1 || absDiff(c.B, g.B) > 1 {
			t.Errorf("center %d differs beyond tolerance: cpu=%v gpu=%v", i, c, g)
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestQuantizeEmptyBuffer(t *testing.T) {
	q, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	_, err = q.QuantizeImage(&PixelBuffer{})
	if _, ok := err.(*EmptyBufferError); !ok {
		t.Fatalf("err = %v (%T), want *EmptyBufferError", err, err)
	}
}

func TestQuantizeBufferTooLargeForGPU(t *testing.T) {
	adapter := software.New(nil)
	q, err := NewBuilder().SetAlgorithm(LloydGpu).SetAdapter(adapter).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer q.Close()
	huge := &oversizedBuffer{n: gpuBufferLimit + 1}
	_, err = q.QuantizeImage(huge.asPixelBuffer())
	if _, ok := err.(*BufferTooLargeError); !ok {
		t.Fatalf("err = %v (%T), want *BufferTooLargeError", err, err)
	}
}

// oversizedBuffer builds a PixelBuffer whose length exceeds the GPU limit.
// It goes through NewPixelBuffer with a real backing array of n*3 bytes;
// with n = gpuBufferLimit+1 the input bytes plus the converted pixels come
// to roughly 100 MB, well within a test's memory budget.
type oversizedBuffer struct {
	n int
}

func (o *oversizedBuffer) asPixelBuffer() *PixelBuffer {
	data := make([]byte, o.n*3)
	buf, err := NewPixelBuffer(data)
	if err != nil {
		panic(err)
	}
	return buf
}
