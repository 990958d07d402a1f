package trust

import "testing"

func TestDelta(t *testing.T) {
	cases := map[Action]int{
		ActionOnTimeReturn:    +5,
		ActionLateReturnMinor: -3,
		ActionLateReturnMajor: -7,
		ActionDispute:         -10,
		ActionCompleted:       +2,
	}
	for action, want := range cases {
		got, err := Delta(action)
		if err != nil {
			t.Fatalf("delta for %s: %v", action, err)
		}
		if got != want {
			t.Errorf("delta for %s: got %d, want %d", action, got, want)
		}
	}
	if _, err := Delta(Action("BOGUS")); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5) != MinScore {
		t.Fatal("expected clamp to floor")
	}
	if Clamp(105) != MaxScore {
		t.Fatal("expected clamp to ceiling")
	}
	if Clamp(50) != 50 {
		t.Fatal("expected in-range score unchanged")
	}
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{100, LevelExcellent},
		{80, LevelExcellent},
		{79, LevelGood},
		{60, LevelGood},
		{59, LevelAverage},
		{40, LevelAverage},
		{39, LevelLow},
		{20, LevelLow},
		{19, LevelPoor},
		{0, LevelPoor},
	}
	for _, c := range cases {
		if got := LevelFor(c.score); got != c.want {
			t.Errorf("level for %d: got %s, want %s", c.score, got, c.want)
		}
	}
}
