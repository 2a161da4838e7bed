package arena

import (
	"reflect"
	"sort"
	"testing"
)

func TestBlindDeterministicPerSeed(t *testing.T) {
	listA := []string{"t1", "t2", "t3"}
	listB := []string{"t4", "t5", "t6"}

	ls1, rs1, ll1, rl1 := blind("cafe0123cafe0123", "sys-a", "sys-b", listA, listB)
	ls2, rs2, ll2, rl2 := blind("cafe0123cafe0123", "sys-a", "sys-b", listA, listB)

	if ls1 != ls2 || rs1 != rs2 {
		t.Errorf("side flip not reproducible: (%s,%s) vs (%s,%s)", ls1, rs1, ls2, rs2)
	}
	if !reflect.DeepEqual(ll1, ll2) || !reflect.DeepEqual(rl1, rl2) {
		t.Error("shuffles not reproducible for the same seed")
	}
}

func TestBlindPreservesListContents(t *testing.T) {
	listA := []string{"t1", "t2", "t3", "t4"}
	listB := []string{"t5", "t6", "t7"}

	leftSys, _, leftList, rightList := blind(newBlindingSeed(), "sys-a", "sys-b", listA, listB)

	wantLeft := listA
	if leftSys == "sys-b" {
		wantLeft = listB
	}
	if !sameElements(leftList, wantLeft) {
		t.Errorf("left list %v is not a permutation of %v", leftList, wantLeft)
	}
	if len(leftList)+len(rightList) != len(listA)+len(listB) {
		t.Error("blinding lost or invented tracks")
	}

	// Inputs stay untouched.
	if !reflect.DeepEqual(listA, []string{"t1", "t2", "t3", "t4"}) {
		t.Errorf("input list mutated: %v", listA)
	}
}

func TestBlindFlipsBothWays(t *testing.T) {
	var sawA, sawB bool
	for i := 0; i < 100 && !(sawA && sawB); i++ {
		leftSys, _, _, _ := blind(newBlindingSeed(), "sys-a", "sys-b", []string{"t1"}, []string{"t2"})
		switch leftSys {
		case "sys-a":
			sawA = true
		case "sys-b":
			sawB = true
		}
	}
	if !sawA || !sawB {
		t.Errorf("coin flip one-sided over 100 seeds: a=%v b=%v", sawA, sawB)
	}
}

func TestNewBlindingSeedUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := newBlindingSeed()
		if len(s) != 16 {
			t.Fatalf("seed %q has length %d, want 16", s, len(s))
		}
		if seen[s] {
			t.Fatalf("seed %q repeated", s)
		}
		seen[s] = true
	}
}

func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	return reflect.DeepEqual(as, bs)
}
