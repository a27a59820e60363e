package kernel

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/uyplayer/tech-analysis/internal/dataset"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.10f, want %.10f (tol=%g, diff=%g)", label, got, want, tol, math.Abs(got-want))
	}
}

func relErr(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}

func ramp(n int) series.Series {
	v := make([]float64, n)
	for i := range v {
		v[i] = float64(i + 1)
	}
	return series.New("ramp", v)
}

func constant(n int, c float64) series.Series {
	v := make([]float64, n)
	for i := range v {
		v[i] = c
	}
	return series.New("constant", v)
}

func randomWalk(n int, seed int64) series.Series {
	rng := rand.New(rand.NewSource(seed))
	v := make([]float64, n)
	price := 100.0
	for i := range v {
		price *= 1 + rng.NormFloat64()*0.01
		v[i] = price
	}
	return series.New("random", v)
}

// ────────────────────────────────────────────────────────────
// Weights
// ────────────────────────────────────────────────────────────

func TestWeights_MonotonicNonIncreasing(t *testing.T) {
	for _, p := range []Params{
		{Family: RationalQuadraticFamily, LookBack: 8, RelativeWeight: 1, StartAtBar: 25},
		{Family: RationalQuadraticFamily, LookBack: 2, RelativeWeight: 0.25, StartAtBar: 10},
		{Family: GaussianFamily, LookBack: 16, StartAtBar: 25},
	} {
		w := Weights(p)
		if len(w) != p.WindowSize() {
			t.Fatalf("%s: expected %d weights, got %d", p.Label(), p.WindowSize(), len(w))
		}
		if w[0] != 1 {
			t.Errorf("%s: expected w(0)=1, got %v", p.Label(), w[0])
		}
		for i := 1; i < len(w); i++ {
			if w[i] > w[i-1] {
				t.Errorf("%s: weight increased at lag %d: %v > %v", p.Label(), i, w[i], w[i-1])
			}
		}
	}
}

func TestRationalQuadraticWeight_ApproachesGaussian(t *testing.T) {
	for i := 0; i < 12; i++ {
		assertClose(t, "w(i) rw=1e6", RationalQuadraticWeight(i, 8, 1e6), GaussianWeight(i, 8), 1e-6)
	}
}

// ────────────────────────────────────────────────────────────
// Concrete scenario
// ────────────────────────────────────────────────────────────

func TestRationalQuadratic_HandComputed(t *testing.T) {
	// look_back=2, relative_weight=3, start_at_bar=1 → window 3
	// w(i) = (1 + i²/(4·2·3))^-3
	w0 := 1.0
	w1 := math.Pow(1+1.0/24, -3)
	w2 := math.Pow(1+4.0/24, -3)
	sum := w0 + w1 + w2
	expected := []float64{
		0,
		0,
		(3*w0 + 2*w1 + 1*w2) / sum,
		(4*w0 + 3*w1 + 2*w2) / sum,
		(5*w0 + 4*w1 + 3*w2) / sum,
	}

	src := series.New("data", []float64{1, 2, 3, 4, 5})
	for _, strategy := range []Strategy{Batch, Reference} {
		out, err := Regression(src, Params{
			Family:         RationalQuadraticFamily,
			Strategy:       strategy,
			LookBack:       2,
			RelativeWeight: 3,
			StartAtBar:     1,
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", strategy, err)
		}
		if out.Len() != src.Len() {
			t.Fatalf("%s: expected length %d, got %d", strategy, src.Len(), out.Len())
		}
		if out.At(0) != 0 || out.At(1) != 0 {
			t.Errorf("%s: expected warm-up zeros, got %v %v", strategy, out.At(0), out.At(1))
		}
		for i := 2; i < 5; i++ {
			assertClose(t, strategy.String(), out.At(i), expected[i], 1e-12)
		}
	}
}

func TestGaussian_HandComputed(t *testing.T) {
	// look_back=1, start_at_bar=0 → window 2, w(1) = exp(-1/2)
	w1 := math.Exp(-0.5)
	src := series.New("data", []float64{10, 20, 40})

	out, err := Gaussian(src, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.At(0) != 0 {
		t.Errorf("expected warm-up zero, got %v", out.At(0))
	}
	assertClose(t, "gaussian[1]", out.At(1), (20+10*w1)/(1+w1), 1e-12)
	assertClose(t, "gaussian[2]", out.At(2), (40+20*w1)/(1+w1), 1e-12)
}

// ────────────────────────────────────────────────────────────
// Invariants
// ────────────────────────────────────────────────────────────

type kernelFunc func(series.Series) (series.Series, error)

func allKernels(lookBack int, relativeWeight float64, startAtBar int) map[string]kernelFunc {
	return map[string]kernelFunc{
		"rational_quadratic": func(s series.Series) (series.Series, error) {
			return RationalQuadratic(s, lookBack, relativeWeight, startAtBar)
		},
		"rational_quadratic_tv": func(s series.Series) (series.Series, error) {
			return RationalQuadraticTV(s, lookBack, relativeWeight, startAtBar)
		},
		"gaussian": func(s series.Series) (series.Series, error) {
			return Gaussian(s, lookBack, startAtBar)
		},
		"gaussian_tv": func(s series.Series) (series.Series, error) {
			return GaussianTV(s, lookBack, startAtBar)
		},
	}
}

func TestKernels_LengthAndWarmup(t *testing.T) {
	const startAtBar = 25
	src := randomWalk(120, 7)

	for name, fn := range allKernels(8, 1, startAtBar) {
		out, err := fn(src)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if out.Len() != src.Len() {
			t.Errorf("%s: expected length %d, got %d", name, src.Len(), out.Len())
		}
		for i := 0; i < ValidStart(startAtBar); i++ {
			if out.At(i) != 0 {
				t.Errorf("%s: expected 0 at warm-up index %d, got %v", name, i, out.At(i))
			}
		}
		for i := ValidStart(startAtBar); i < out.Len(); i++ {
			if out.At(i) == 0 {
				t.Errorf("%s: expected an estimate at index %d", name, i)
			}
		}
	}
}

func TestKernels_ConstantSeriesIsFixedPoint(t *testing.T) {
	src := constant(40, 42.5)
	for name, fn := range allKernels(4, 2, 5) {
		out, err := fn(src)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		for i := ValidStart(5); i < out.Len(); i++ {
			assertClose(t, name, out.At(i), 42.5, 1e-9)
		}
	}
}

func TestKernels_DoNotMutateInput(t *testing.T) {
	src := ramp(30)
	before := src.Values()
	for name, fn := range allKernels(3, 1.5, 4) {
		if _, err := fn(src); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
	}
	for i, v := range src.Values() {
		if v != before[i] {
			t.Fatalf("input mutated at %d: %v != %v", i, v, before[i])
		}
	}
}

func TestBatchReferenceParity(t *testing.T) {
	inputs := []series.Series{constant(80, 3.25), ramp(80), randomWalk(300, 42)}
	params := []Params{
		{Family: RationalQuadraticFamily, LookBack: 8, RelativeWeight: 1, StartAtBar: 25},
		{Family: RationalQuadraticFamily, LookBack: 3, RelativeWeight: 0.5, StartAtBar: 0},
		{Family: GaussianFamily, LookBack: 16, StartAtBar: 25},
		{Family: GaussianFamily, LookBack: 1, StartAtBar: 3},
	}

	for _, src := range inputs {
		for _, p := range params {
			p.Strategy = Batch
			b, err := Regression(src, p)
			if err != nil {
				t.Fatalf("%s batch on %s: %v", p.Label(), src.Name, err)
			}
			p.Strategy = Reference
			r, err := Regression(src, p)
			if err != nil {
				t.Fatalf("%s reference on %s: %v", p.Label(), src.Name, err)
			}

			for i := ValidStart(p.StartAtBar); i < src.Len(); i++ {
				if e := relErr(b.At(i), r.At(i)); e >= 1e-9 {
					t.Errorf("%s on %s: bar %d batch=%v reference=%v rel err %g",
						p.Label(), src.Name, i, b.At(i), r.At(i), e)
				}
			}
		}
	}
}

func TestRationalQuadratic_GaussianLimit(t *testing.T) {
	v := make([]float64, 150)
	for i := range v {
		v[i] = math.Sin(float64(i)/7) + 0.3*math.Cos(float64(i)/3)
	}
	src := series.New("wave", v)

	rq, err := RationalQuadratic(src, 8, 1000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := Gaussian(src, 8, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := ValidStart(10); i < src.Len(); i++ {
		assertClose(t, "rq(rw=1000) vs gaussian", rq.At(i), g.At(i), 1e-3)
	}
}

// ────────────────────────────────────────────────────────────
// Captured reference values
// ────────────────────────────────────────────────────────────

func TestKernels_MatchCapturedReference(t *testing.T) {
	frame, err := dataset.LoadCSV(filepath.Join("testdata", "btcusdt_15m.csv"), dataset.Options{Symbol: "BTCUSDT", TF: 900})
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	closes, err := frame.Column("close")
	if err != nil {
		t.Fatalf("close column: %v", err)
	}
	wantRQ, err := frame.Column("rational_quadratic")
	if err != nil {
		t.Fatalf("rational_quadratic column: %v", err)
	}
	wantGauss, err := frame.Column("gaussian")
	if err != nil {
		t.Fatalf("gaussian column: %v", err)
	}

	const startAtBar = 25
	cases := []struct {
		name string
		fn   func() (series.Series, error)
		want series.Series
	}{
		{"rational_quadratic", func() (series.Series, error) { return RationalQuadratic(closes, 8, 1, startAtBar) }, wantRQ},
		{"rational_quadratic_tv", func() (series.Series, error) { return RationalQuadraticTV(closes, 8, 1, startAtBar) }, wantRQ},
		{"gaussian", func() (series.Series, error) { return Gaussian(closes, 16, startAtBar) }, wantGauss},
		{"gaussian_tv", func() (series.Series, error) { return GaussianTV(closes, 16, startAtBar) }, wantGauss},
	}

	for _, tc := range cases {
		got, err := tc.fn()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		// mean squared error over the valid range, as the captured export is compared
		sq := 0.0
		n := 0
		for i := ValidStart(startAtBar); i < got.Len(); i++ {
			d := got.At(i) - tc.want.At(i)
			sq += d * d
			n++
			if e := relErr(got.At(i), tc.want.At(i)); e >= 1e-9 {
				t.Errorf("%s: bar %d got %v want %v", tc.name, i, got.At(i), tc.want.At(i))
			}
		}
		if mse := sq / float64(n); mse > 1e-12 {
			t.Errorf("%s: mean squared error %g", tc.name, mse)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Errors
// ────────────────────────────────────────────────────────────

func TestKernels_DomainErrors(t *testing.T) {
	short := ramp(4)
	tests := []struct {
		name string
		run  func() (series.Series, error)
	}{
		{"series shorter than window", func() (series.Series, error) { return RationalQuadratic(short, 8, 1, 3) }},
		{"series shorter than window tv", func() (series.Series, error) { return GaussianTV(short, 8, 3) }},
		{"zero look_back", func() (series.Series, error) { return Gaussian(ramp(10), 0, 1) }},
		{"negative start_at_bar", func() (series.Series, error) { return RationalQuadraticTV(ramp(10), 2, 1, -1) }},
		{"zero relative_weight", func() (series.Series, error) { return RationalQuadratic(ramp(10), 2, 0, 1) }},
		{"NaN relative_weight", func() (series.Series, error) { return RationalQuadratic(ramp(10), 2, math.NaN(), 1) }},
		{"unknown family", func() (series.Series, error) { return Regression(ramp(10), Params{Family: 9, LookBack: 1}) }},
		{"start_at_bar at MaxInt", func() (series.Series, error) {
			return Regression(ramp(10), Params{Family: GaussianFamily, LookBack: 1, StartAtBar: math.MaxInt})
		}},
		{"start_at_bar at MaxInt-1", func() (series.Series, error) {
			return Regression(ramp(10), Params{Family: GaussianFamily, LookBack: 1, StartAtBar: math.MaxInt - 1})
		}},
		{"start_at_bar at MaxInt-1 tv", func() (series.Series, error) {
			return Regression(ramp(10), Params{Family: GaussianFamily, Strategy: Reference, LookBack: 1, StartAtBar: math.MaxInt - 1})
		}},
		{"start_at_bar overflow on empty series", func() (series.Series, error) {
			return RationalQuadraticTV(series.New("empty", nil), 2, 1, math.MaxInt)
		}},
		{"unknown strategy", func() (series.Series, error) {
			return Regression(ramp(10), Params{Family: GaussianFamily, Strategy: 9, LookBack: 1})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.run()
			var domainErr *series.DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected DomainError, got %v", err)
			}
			if out.Len() != 0 {
				t.Errorf("expected no partial output, got %d values", out.Len())
			}
		})
	}
}

func TestKernels_WindowEqualToLength(t *testing.T) {
	// N == window size is the smallest valid input: exactly one estimate.
	out, err := RationalQuadratic(ramp(5), 2, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 4; i++ {
		if out.At(i) != 0 {
			t.Errorf("expected 0 at %d, got %v", i, out.At(i))
		}
	}
	if out.At(4) == 0 {
		t.Error("expected an estimate at the last bar")
	}
}

func TestKernels_NonFiniteInputIsNumericError(t *testing.T) {
	v := ramp(20).Values()
	v[12] = math.NaN()
	src := series.New("gappy", v)

	for name, fn := range allKernels(4, 1, 3) {
		_, err := fn(src)
		var numErr *series.NumericError
		if !errors.As(err, &numErr) {
			t.Fatalf("%s: expected NumericError, got %v", name, err)
		}
		if numErr.Index != 12 {
			t.Errorf("%s: expected first bad bar 12, got %d", name, numErr.Index)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": Batch, "batch": Batch, "reference": Reference, "tv": Reference} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("simd"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestParams_Label(t *testing.T) {
	rq := Params{Family: RationalQuadraticFamily, LookBack: 8, RelativeWeight: 1, StartAtBar: 25}
	if got := rq.Label(); got != "RQ_8_1_25" {
		t.Errorf("expected RQ_8_1_25, got %s", got)
	}
	g := Params{Family: GaussianFamily, LookBack: 16, StartAtBar: 25}
	if got := g.Label(); got != "GAUSS_16_25" {
		t.Errorf("expected GAUSS_16_25, got %s", got)
	}
}
