package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/uyplayer/tech-analysis/internal/kernel"
	"github.com/uyplayer/tech-analysis/internal/series"
)

type recordedCall struct {
	typ string
	err error
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) ObserveCompute(typ string, _ time.Duration, err error) {
	f.calls = append(f.calls, recordedCall{typ: typ, err: err})
}

func makeCloses(n int) series.Series {
	v := make([]float64, n)
	for i := range v {
		v[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	return series.New("close", v)
}

func TestEngine_ProcessKernels(t *testing.T) {
	engine, err := NewEngine(ParseSpecs("RQ:8:1:25,GAUSS:16:25,RMA:10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := makeCloses(100)

	results, err := engine.Process(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	names := []string{"RQ_8_1_25", "GAUSS_16_25", "RMA_10"}
	for i, r := range results {
		if r.Name != names[i] {
			t.Errorf("result %d: expected name=%s, got %s", i, names[i], r.Name)
		}
		if r.Source != "close" {
			t.Errorf("result %d: expected source=close, got %s", i, r.Source)
		}
		if !r.Ready {
			t.Errorf("result %d: expected Ready=true", i)
		}
		if r.Last != r.Series.Last() {
			t.Errorf("result %d: Last %v does not match series %v", i, r.Last, r.Series.Last())
		}
	}

	want, _ := kernel.RationalQuadratic(src, 8, 1, 25)
	for i := 0; i < src.Len(); i++ {
		if results[0].Series.At(i) != want.At(i) {
			t.Fatalf("engine RQ differs from kernel.RationalQuadratic at %d", i)
		}
	}
}

func TestEngine_ProcessAbortsOnError(t *testing.T) {
	engine, err := NewEngine([]Config{
		{Type: TypeRMA, Length: 3},
		{Type: TypeRQ, LookBack: 8, RelativeWeight: 1, StartAtBar: 50},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := &fakeRecorder{}
	engine.SetRecorder(rec)

	results, err := engine.Process(makeCloses(20))
	var domainErr *series.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %d", len(results))
	}
	if len(rec.calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(rec.calls))
	}
	if rec.calls[0].typ != TypeRMA || rec.calls[0].err != nil {
		t.Errorf("unexpected first call %+v", rec.calls[0])
	}
	if rec.calls[1].typ != TypeRQ || rec.calls[1].err == nil {
		t.Errorf("unexpected second call %+v", rec.calls[1])
	}
}

func TestEngine_Chain(t *testing.T) {
	engine, err := NewEngine(ParseSpecs("NORM:-1:1,RQ:4:2:5,RESCALE:-1:1:0:100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := makeCloses(60)

	out, bars, err := engine.Chain(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != src.Len() {
		t.Fatalf("expected %d values, got %d", src.Len(), out.Len())
	}
	if bars != nil {
		t.Errorf("expected nil bars for a full-length chain, got %v", bars)
	}

	// Step through by hand.
	norm, _ := Normalize(src, -1, 1)
	rq, _ := kernel.RationalQuadratic(norm, 4, 2, 5)
	want, _ := Rescale(rq, -1, 1, 0, 100)
	for i := 0; i < out.Len(); i++ {
		assertClose(t, "chain", out.At(i), want.At(i), 1e-12)
	}
	if out.Name != "RESCALE_-1_1_0_100" {
		t.Errorf("expected last stage name, got %s", out.Name)
	}
}

func TestEngine_RMAGapBars(t *testing.T) {
	src := series.New("close", []float64{1, math.NaN(), 3, math.NaN(), math.NaN(), 6})

	engine, err := NewEngine(ParseSpecs("RMA:1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results, err := engine.Process(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := results[0]
	wantBars := []int{0, 2, 5}
	if len(r.Bars) != len(wantBars) {
		t.Fatalf("expected bars %v, got %v", wantBars, r.Bars)
	}
	for i, b := range wantBars {
		if r.Bars[i] != b || r.BarIndex(i, src.Len()) != b {
			t.Errorf("value %d: expected bar %d, got %d", i, b, r.Bars[i])
		}
	}

	// Stages after the RMA keep its bars.
	chain, err := NewEngine(ParseSpecs("RMA:1,RESCALE:0:10:0:1,RMA:1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, bars, err := chain.Chain(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 3 || len(bars) != 3 || bars[0] != 0 || bars[1] != 2 || bars[2] != 5 {
		t.Errorf("expected 3 values on bars [0 2 5], got %v on %v", out.Values(), bars)
	}

	full, err := engine.Process(makeCloses(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full[0].Bars != nil {
		t.Errorf("expected nil bars without gaps, got %v", full[0].Bars)
	}
}

func TestNewEngine_UnknownType(t *testing.T) {
	if _, err := NewEngine([]Config{{Type: "MACD"}}); err == nil {
		t.Fatal("expected error for unknown indicator type")
	}
}

func TestParseSpecs(t *testing.T) {
	configs := ParseSpecs("rq:8:1:25, GAUSSTV:16:25 ,RMA:14,NORM:0:1,RESCALE:0:100:-1:1")
	if len(configs) != 5 {
		t.Fatalf("expected 5 configs, got %d", len(configs))
	}
	if c := configs[0]; c.Type != TypeRQ || c.LookBack != 8 || c.RelativeWeight != 1 || c.StartAtBar != 25 {
		t.Errorf("unexpected RQ config %+v", c)
	}
	if c := configs[1]; c.Type != TypeGaussTV || c.LookBack != 16 || c.StartAtBar != 25 {
		t.Errorf("unexpected GAUSSTV config %+v", c)
	}
	if c := configs[2]; c.Length != 14 {
		t.Errorf("unexpected RMA config %+v", c)
	}
	if c := configs[4]; c.OldMin != 0 || c.OldMax != 100 || c.Min != -1 || c.Max != 1 {
		t.Errorf("unexpected RESCALE config %+v", c)
	}
}

func TestParseSpecs_SkipsInvalidAndDefaults(t *testing.T) {
	configs := ParseSpecs("RQ:8:1,RMA:2.5,FOO:1,GAUSS:16:25")
	if len(configs) != 1 || configs[0].Type != TypeGauss {
		t.Fatalf("expected only the GAUSS spec to survive, got %+v", configs)
	}

	defaults := ParseSpecs("")
	if len(defaults) != 2 || defaults[0].Name() != "RQ_8_1_25" || defaults[1].Name() != "GAUSS_16_25" {
		t.Errorf("unexpected defaults %+v", defaults)
	}

	if got := ParseSpecs("nope"); len(got) != 2 {
		t.Errorf("expected defaults when nothing parses, got %+v", got)
	}
}

func TestWithStrategy(t *testing.T) {
	configs := WithStrategy(ParseSpecs("RQ:8:1:25,GAUSS:16:25,RMA:3"), kernel.Reference)
	if configs[0].Type != TypeRQTV || configs[1].Type != TypeGaussTV || configs[2].Type != TypeRMA {
		t.Errorf("unexpected reference configs %+v", configs)
	}
	back := WithStrategy(configs, kernel.Batch)
	if back[0].Type != TypeRQ || back[1].Type != TypeGauss {
		t.Errorf("unexpected batch configs %+v", back)
	}
}

func TestParity(t *testing.T) {
	reports, err := Parity(makeCloses(200), ParseSpecs("RQ:8:1:25,GAUSS:16:25,RMA:10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 kernel reports, got %d", len(reports))
	}
	for _, r := range reports {
		if r.Bars != 200-26 {
			t.Errorf("%s: expected %d bars compared, got %d", r.Name, 200-26, r.Bars)
		}
		if !r.OK() {
			t.Errorf("%s: strategies disagree, max rel err %g at bar %d", r.Name, r.MaxRelErr, r.WorstBar)
		}
	}
}
