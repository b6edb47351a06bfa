package bookmaker

import "testing"

func TestNormalizeFoldsVariants(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ladbrooks", "ladbrokes"},
		{"ladbroke", "ladbrokes"},
		{"Ladbrokes", "ladbrokes"},
		{"  LADBROKES  ", "ladbrokes"},
		{"ladbrokes_uk", "ladbrokes"},
		{"uni bet", "unibet"},
		{"Unibet", "unibet"},
		{"will hill", "william hill"},
		{"William  Hill", "william hill"},
		{"williamhill", "william hill"},
		{"boyle sports", "boylesports"},
		{"Boyle-Sports", "boylesports"},
		{"BoyleSports", "boylesports"},
		{"Betfair Exchange", "betfair"},
		{"betfair_ex_uk", "betfair"},
		{"Betfair Sportsbook", "betfair sportsbook"},
		{"betfair_sb_uk", "betfair sportsbook"},
		{"Sky Bet", "sky bet"},
		{"Paddy Power", "paddy power"},
		{"Pinny", "pinnacle"},
		{"Some  Regional Book", "some regional book"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want Book
	}{
		{"Bet365", Bet365},
		{"Ladbrooks", Ladbrokes},
		{"Coral", Coral},
		{"paddypower", PaddyPower},
		{"skybet", SkyBet},
		{"Betfair", Betfair},
		{"Betfair Sportsbook", BetfairSportsbook},
		{"betfair_sb_uk", BetfairSportsbook},
		{"Matchbook", Unknown},
		{"   ", Unknown},
	}
	for _, tt := range tests {
		if got := Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBookStringAndKey(t *testing.T) {
	if WilliamHill.String() != "William Hill" {
		t.Errorf("String() = %q", WilliamHill.String())
	}
	if WilliamHill.Key() != "william hill" {
		t.Errorf("Key() = %q", WilliamHill.Key())
	}
	if Unknown.Key() != "" || Unknown.String() != "Unknown" {
		t.Errorf("Unknown = %q/%q", Unknown.String(), Unknown.Key())
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Will   Hill ", "william hill"},
		{"LADBROOKS", "ladbrokes"},
		{"Ladbrook", "ladbroke"},
		{"Boyle Sports", "boylesports"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
