package meal

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "LUNCH", want: Lunch},
		{in: "lunch", want: Lunch},
		{in: " Dinner ", want: Dinner},
		{in: "BRUNCH", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseSetRoundTrip(t *testing.T) {
	set, err := ParseSet("DINNER,LUNCH")
	if err != nil {
		t.Fatalf("ParseSet() error = %v", err)
	}
	if !set.Contains(Lunch) || !set.Contains(Dinner) {
		t.Errorf("set missing members: %v", set)
	}
	if set.Contains(Breakfast) {
		t.Errorf("set should not contain BREAKFAST")
	}
	if got := set.String(); got != "LUNCH,DINNER" {
		t.Errorf("String() = %q, want LUNCH,DINNER", got)
	}
}

func TestParseSetEmpty(t *testing.T) {
	set, err := ParseSet("")
	if err != nil {
		t.Fatalf("ParseSet(\"\") error = %v", err)
	}
	if len(set) != 0 {
		t.Errorf("want empty set, got %v", set)
	}
}

func TestParseSetUnknown(t *testing.T) {
	if _, err := ParseSet("LUNCH,TEATIME"); err == nil {
		t.Error("want error for unknown meal in set")
	}
}
