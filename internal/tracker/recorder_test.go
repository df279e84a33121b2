package tracker

import (
	"testing"
)

func TestRecorderIdempotentApplication(t *testing.T) {
	p := newTestPipeline(t)

	f := Fact{
		IdentityID:  "u1",
		DisplayName: "alice",
		GroupID:     "g1",
		GroupName:   "guild one",
		Action:      ActionMessage,
		Detail:      "sent message id=m1",
	}
	if err := p.rec.Record(f); err != nil {
		t.Fatalf("first record: %v", err)
	}
	f.DisplayName = "alice the renamed"
	if err := p.rec.Record(f); err != nil {
		t.Fatalf("second record: %v", err)
	}

	matches, err := p.store.FindIdentity("u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one identity row, got %+v", matches)
	}
	if matches[0].DisplayName != "alice the renamed" {
		t.Fatalf("display name not refreshed: %+v", matches[0])
	}
	if len(matches[0].Groups) != 1 {
		t.Fatalf("expected one membership, got %+v", matches[0].Groups)
	}

	entries, err := p.log.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("replay must not re-log, got %d entries", len(entries))
	}
}

func TestRecorderDropsIncompleteFacts(t *testing.T) {
	p := newTestPipeline(t)

	if err := p.rec.Record(Fact{IdentityID: "u1", Action: ActionMessage}); err != nil {
		t.Fatalf("record without group: %v", err)
	}
	if err := p.rec.Record(Fact{GroupID: "g1", Action: ActionMessage}); err != nil {
		t.Fatalf("record without identity: %v", err)
	}

	total, err := p.store.CountIdentities()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 0 {
		t.Fatalf("incomplete facts must not persist, got %d identities", total)
	}
}
