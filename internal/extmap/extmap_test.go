package extmap

import "testing"

func TestMapScanAndGetString(t *testing.T) {
	var m Map
	if err := m.Scan(`{"message":"raid incoming","viewers":12}`); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	s, ok := m.GetString("message")
	if !ok || s != "raid incoming" {
		t.Fatalf("GetString(message) = (%q, %v), want (raid incoming, true)", s, ok)
	}
	if _, ok := m.GetString("viewers"); ok {
		t.Fatalf("GetString(viewers) ok = true for a non-string value")
	}
	if _, ok := m.GetString("absent"); ok {
		t.Fatalf("GetString(absent) ok = true, want false")
	}
}

func TestListAddDeduplicates(t *testing.T) {
	var l List
	l = l.Add("alice").Add("bob").Add("alice")
	if len(l) != 2 {
		t.Fatalf("List = %v, want [alice bob]", l)
	}
	if !l.Contains("bob") || l.Contains("carol") {
		t.Fatalf("Contains: bob=%v carol=%v", l.Contains("bob"), l.Contains("carol"))
	}
}
