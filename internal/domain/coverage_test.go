package domain

import "testing"

func profileA() Profile {
	return Profile{
		"src/circuit.py": {1: true, 2: true, 3: false},
		"src/gates.py":   {10: true},
	}
}

func profileB() Profile {
	return Profile{
		"src/circuit.py": {3: true, 4: false},
		"src/qasm.py":    {1: false, 2: true},
	}
}

func TestMergeUnionSemantics(t *testing.T) {
	merged := profileA()
	merged.Merge(profileB())

	circuit := merged["src/circuit.py"]
	if !circuit[3] {
		t.Fatalf("line covered in either profile must count as covered")
	}
	if circuit[4] {
		t.Fatalf("uncovered line must stay uncovered")
	}
	stat := merged.Overall()
	// circuit: 4 lines, 3 covered; gates: 1/1; qasm: 1/2
	if stat.Covered != 5 || stat.Total != 7 {
		t.Fatalf("unexpected overall stat: %+v", stat)
	}
}

func TestMergeCommutative(t *testing.T) {
	left := profileA()
	left.Merge(profileB())
	right := profileB()
	right.Merge(profileA())

	if left.Overall() != right.Overall() {
		t.Fatalf("merge order changed totals: %+v vs %+v", left.Overall(), right.Overall())
	}
	for _, file := range left.Files() {
		for line, hit := range left[file] {
			if right[file][line] != hit {
				t.Fatalf("merge order changed %s:%d", file, line)
			}
		}
	}
}

func TestMergeAssociative(t *testing.T) {
	c := Profile{"src/circuit.py": {5: true}}

	ab := profileA()
	ab.Merge(profileB())
	ab.Merge(c.Clone())

	bc := profileB()
	bc.Merge(c.Clone())
	a := profileA()
	a.Merge(bc)

	if ab.Overall() != a.Overall() {
		t.Fatalf("associativity violated: %+v vs %+v", ab.Overall(), a.Overall())
	}
}

func TestMergeNeverDoubleCounts(t *testing.T) {
	merged := profileA()
	merged.Merge(profileA())
	if merged.Overall() != profileA().Overall() {
		t.Fatalf("re-merging identical lines changed totals")
	}
}

func TestStatPercent(t *testing.T) {
	stat := CoverageStat{Covered: 1, Total: 3}
	if got := stat.PercentRounded(); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
	if (CoverageStat{}).Percent() != 0 {
		t.Fatalf("empty stat must be zero percent")
	}
}
