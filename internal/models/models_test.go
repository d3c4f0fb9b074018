package models

import (
	"errors"
	"testing"
)

func TestRoundSlotCounts(t *testing.T) {
	total := 0
	for _, r := range Rounds {
		total += r.SlotCount()
	}
	if total != TotalGames {
		t.Fatalf("expected %d games across all rounds, got %d", TotalGames, total)
	}

	if RoundWildcard.SlotsPerConference() != 3 {
		t.Errorf("wildcard should have 3 games per conference")
	}
	if RoundFinal.SlotsPerConference() != 0 {
		t.Errorf("final should not be split by conference")
	}
}

func TestConferenceForSlot(t *testing.T) {
	tests := []struct {
		round Round
		slot  int
		want  Conference
		ok    bool
	}{
		{RoundWildcard, 1, ConferenceA, true},
		{RoundWildcard, 3, ConferenceA, true},
		{RoundWildcard, 4, ConferenceB, true},
		{RoundWildcard, 7, "", false},
		{RoundDivisional, 2, ConferenceA, true},
		{RoundDivisional, 3, ConferenceB, true},
		{RoundConference, 1, ConferenceA, true},
		{RoundConference, 2, ConferenceB, true},
		{RoundFinal, 1, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.round.ConferenceForSlot(tt.slot)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s slot %d: got (%q, %v), want (%q, %v)", tt.round, tt.slot, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRoundNavigation(t *testing.T) {
	if next, ok := RoundWildcard.Next(); !ok || next != RoundDivisional {
		t.Errorf("wildcard.Next() = %v, %v", next, ok)
	}
	if _, ok := RoundFinal.Next(); ok {
		t.Error("final should have no next round")
	}
	if prev, ok := RoundFinal.Previous(); !ok || prev != RoundConference {
		t.Errorf("final.Previous() = %v, %v", prev, ok)
	}
	if _, ok := RoundWildcard.Previous(); ok {
		t.Error("wildcard should have no previous round")
	}
	if Round("preseason").Valid() {
		t.Error("unknown round should be invalid")
	}
}

func TestGameHelpers(t *testing.T) {
	g := Game{HomeTeam: "KC", AwayTeam: "MIA"}
	if !g.HasTeam("KC") || !g.HasTeam("MIA") || g.HasTeam("BUF") {
		t.Error("HasTeam mismatch")
	}

	placeholder := Game{HomeTeam: TBD, AwayTeam: TBD}
	if placeholder.HasTeam(TBD) {
		t.Error("TBD must never count as a team")
	}

	if g.Decided() {
		t.Error("game without a winner should not be decided")
	}
	g.Winner = StringPtr("MIA")
	g.Completed = true
	loser, ok := g.Loser()
	if !ok || loser != "KC" {
		t.Errorf("Loser() = %q, %v", loser, ok)
	}
}

func TestGameClone(t *testing.T) {
	g := Game{HomeSeed: IntPtr(2), AwaySeed: IntPtr(7), Winner: StringPtr("KC")}
	c := g.Clone()
	*c.HomeSeed = 5
	*c.Winner = "BUF"
	if *g.HomeSeed != 2 || *g.Winner != "KC" {
		t.Error("Clone shares pointers with the original")
	}
}

func TestErrorWrapping(t *testing.T) {
	err := Validationf("seeds incomplete: conference %s has %d", ConferenceA, 6)
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ErrValidation")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("validation error should not match ErrNotFound")
	}
	if !errors.Is(NotFoundf("game %s", "x"), ErrNotFound) {
		t.Error("expected ErrNotFound")
	}
	if !errors.Is(Consistencyf("bad"), ErrConsistency) {
		t.Error("expected ErrConsistency")
	}
}
