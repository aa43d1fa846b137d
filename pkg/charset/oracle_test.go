package charset

import (
	"sync"
	"testing"
)

func TestOracleIs(t *testing.T) {
	o := Default()
	tests := []struct {
		set  Set
		r    rune
		want bool
	}{
		{PunctSymbol, ',', true},
		{PunctSymbol, '!', true},
		{PunctSymbol, '؟', true}, // Arabic question mark (Po)
		{PunctSymbol, '،', true}, // Arabic comma (Po)
		{PunctSymbol, '$', true}, // Sc
		{PunctSymbol, '+', true}, // Sm
		{PunctSymbol, '_', true}, // Pc
		{PunctSymbol, 'a', false},
		{PunctSymbol, ' ', false},
		{LetterMarkNumber, 'a', true},
		{LetterMarkNumber, 'Z', true},
		{LetterMarkNumber, 'ذ', true},
		{LetterMarkNumber, 'َ', true}, // fatha (Mn)
		{LetterMarkNumber, '7', true},
		{LetterMarkNumber, '٣', true}, // Arabic-Indic digit
		{LetterMarkNumber, '½', true}, // No
		{LetterMarkNumber, ' ', false},
		{LetterMarkNumber, '\n', false},
		{LetterMarkNumber, '.', false},
		{Arabic, 'ذ', true},
		{Arabic, 'ى', true},
		{Arabic, 'گ', true},
		{Arabic, 'ّ', true}, // shaddah
		{Arabic, 'ـ', true},
		{Arabic, 'ٱ', false}, // wasla is unified before classification
		{Arabic, '٣', false},
		{Arabic, 'a', false},
	}
	for _, tt := range tests {
		if got := o.Is(tt.set, tt.r); got != tt.want {
			t.Errorf("Is(%v, %q) = %v, want %v", tt.set, tt.r, got, tt.want)
		}
	}
}

func TestOracleSetsDisjoint(t *testing.T) {
	o := Default()
	for r := rune(0); r <= maxScanned; r++ {
		if o.Is(PunctSymbol, r) && o.Is(LetterMarkNumber, r) {
			t.Fatalf("rune %U in both PunctSymbol and LetterMarkNumber", r)
		}
	}
}

func TestOracleOutsideBMP(t *testing.T) {
	o := Default()
	if o.Is(LetterMarkNumber, '𝐀') {
		t.Error("supplementary-plane letters should not be scanned")
	}
}

func TestOracleAll(t *testing.T) {
	o := Default()
	tests := []struct {
		s    string
		want bool
	}{
		{"ذهب", true},
		{"ذَهَبَ", true},
		{"", false},
		{"ذهب1", false},
		{"Hello", false},
		{"ذهب عالم", false},
	}
	for _, tt := range tests {
		if got := o.All(Arabic, tt.s); got != tt.want {
			t.Errorf("All(Arabic, %q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestOracleUnknownSet(t *testing.T) {
	o := Default()
	if o.Table(Set(42)) != nil {
		t.Error("unknown set should have no table")
	}
	if o.Is(Set(42), 'a') {
		t.Error("unknown set should match nothing")
	}
	if Set(42).String() != "Set(42)" {
		t.Errorf("String = %q", Set(42).String())
	}
}

func TestDefaultConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Oracle, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Default()
		}(i)
	}
	wg.Wait()
	for i := range got {
		if got[i] != got[0] {
			t.Fatal("Default returned different oracles")
		}
	}
}
