package attention

import "testing"

func TestInhibitionOfReturnAcrossTicks(t *testing.T) {
	e := New()
	dets := []Detection{{Label: "cup", Confidence: 0.9}, {Label: "book", Confidence: 0.6}}
	surprise := map[string]float64{}

	tick1 := e.Compute(dets, "cup", surprise)
	var cupScore1 float64
	for _, s := range tick1 {
		if s.Label == "cup" {
			cupScore1 = s.Score
		}
	}

	e.Inhibit("cup")
	tick2 := e.Compute(dets, "cup", surprise)
	var cupScore2 float64
	for _, s := range tick2 {
		if s.Label == "cup" {
			cupScore2 = s.Score
		}
	}

	if cupScore2 >= cupScore1 {
		t.Fatalf("expected inhibited score to drop: tick1=%v tick2=%v", cupScore1, cupScore2)
	}
}

func TestInhibitionDecaysOverTicks(t *testing.T) {
	e := New()
	e.Inhibit("cup")
	e.mu.Lock()
	before := e.inhibition["cup"]
	e.mu.Unlock()

	e.Compute(nil, "", nil)

	e.mu.Lock()
	after := e.inhibition["cup"]
	e.mu.Unlock()

	if after >= before {
		t.Fatalf("expected inhibition to decay, before=%v after=%v", before, after)
	}
}

func TestTopDownBoostsKeywordMatch(t *testing.T) {
	e := New()
	dets := []Detection{{Label: "red_cup", Confidence: 0.5}, {Label: "book", Confidence: 0.5}}
	scores := e.Compute(dets, "cup", map[string]float64{})

	var cupScore, bookScore float64
	for _, s := range scores {
		switch s.Label {
		case "red_cup":
			cupScore = s.Score
		case "book":
			bookScore = s.Score
		}
	}
	if cupScore <= bookScore {
		t.Fatalf("expected task-relevant label to score higher: cup=%v book=%v", cupScore, bookScore)
	}
}
