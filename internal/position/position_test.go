package position

import "testing"

func TestPositionString(t *testing.T) {
	p := Position{Filename: "/src/token.vsp", Line: 4, Column: 7, Offset: 52}
	if got := p.String(); got != "token.vsp:4:7" {
		t.Errorf("Position.String() = %q, want %q", got, "token.vsp:4:7")
	}

	anon := Position{Line: 1, Column: 2, Offset: 1}
	if got := anon.String(); got != "1:2" {
		t.Errorf("Position.String() = %q, want %q", got, "1:2")
	}
}

func TestSpanValidity(t *testing.T) {
	start := Position{Filename: "a.vsp", Line: 1, Column: 1, Offset: 0}
	end := Position{Filename: "a.vsp", Line: 1, Column: 5, Offset: 4}

	span := NewSpan(start, end)
	if !span.IsValid() {
		t.Error("expected span to be valid")
	}

	reversed := NewSpan(end, start)
	if reversed.IsValid() {
		t.Error("expected reversed span to be invalid")
	}

	crossFile := NewSpan(start, Position{Filename: "b.vsp", Line: 1, Column: 2, Offset: 1})
	if crossFile.IsValid() {
		t.Error("expected cross-file span to be invalid")
	}
}

func TestSpanContains(t *testing.T) {
	span := NewSpan(
		Position{Filename: "a.vsp", Line: 1, Column: 1, Offset: 10},
		Position{Filename: "a.vsp", Line: 1, Column: 11, Offset: 20},
	)

	inside := Position{Filename: "a.vsp", Line: 1, Column: 5, Offset: 14}
	if !span.Contains(inside) {
		t.Error("expected span to contain inner position")
	}

	past := Position{Filename: "a.vsp", Line: 1, Column: 12, Offset: 21}
	if span.Contains(past) {
		t.Error("expected span not to contain position past the end")
	}
}
