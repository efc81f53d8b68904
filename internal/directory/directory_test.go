package directory

import (
	"errors"
	"testing"

	"github.com/nhle/mail-assistant/internal/model"
)

func msgs(ids ...string) []model.Message {
	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Message{ID: id, Subject: "s" + id})
	}
	return out
}

func TestReplace_BumpsGeneration(t *testing.T) {
	d := New()
	if d.Current().Generation != 0 || d.Current().Len() != 0 {
		t.Fatalf("new directory = gen %d len %d", d.Current().Generation, d.Current().Len())
	}

	first := d.Replace(msgs("3", "2", "1"))
	second := d.Replace(msgs("5", "4"))

	if first.Generation != 1 || second.Generation != 2 {
		t.Errorf("generations = %d, %d, want 1, 2", first.Generation, second.Generation)
	}
	if d.Current() != second {
		t.Error("Current is not the latest snapshot")
	}

	got := second.Messages()
	if len(got) != 2 || got[0].ID != "5" || got[1].ID != "4" {
		t.Errorf("Messages = %+v, want order 5, 4", got)
	}
}

func TestReplace_SkipsDuplicateIDs(t *testing.T) {
	d := New()
	in := msgs("1", "2")
	in = append(in, model.Message{ID: "1", Subject: "dup"})

	snap := d.Replace(in)
	if snap.Len() != 2 {
		t.Fatalf("Len = %d, want 2", snap.Len())
	}
	if m, _ := snap.Get("1"); m.Subject != "s1" {
		t.Errorf("duplicate overwrote first: %+v", m)
	}
}

func TestLookup(t *testing.T) {
	d := New()
	d.Replace(msgs("1", "2"))

	msg, gen, err := d.Lookup("2", 0)
	if err != nil || msg.ID != "2" || gen != 1 {
		t.Errorf("Lookup(2) = %+v, %d, %v", msg, gen, err)
	}

	_, _, err = d.Lookup("9", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
	if IsStale(err) {
		t.Error("unknown id reported as stale")
	}
}

func TestLookup_Stale(t *testing.T) {
	d := New()
	d.Replace(msgs("1"))
	d.Replace(msgs("1"))

	_, _, err := d.Lookup("1", 1)
	if !IsStale(err) {
		t.Fatalf("err = %v, want StaleError", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("StaleError does not match ErrNotFound")
	}

	var se *StaleError
	errors.As(err, &se)
	if se.Expected != 1 || se.Current != 2 {
		t.Errorf("StaleError = %+v", se)
	}
}

func TestUpdate(t *testing.T) {
	d := New()
	before := d.Replace(msgs("1", "2"))

	updated, err := d.Update(before.Generation, "1", func(m *model.Message) {
		m.Draft = "hello"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Draft != "hello" {
		t.Errorf("returned Draft = %q", updated.Draft)
	}

	got, _, _ := d.Lookup("1", before.Generation)
	if got.Draft != "hello" {
		t.Errorf("stored Draft = %q", got.Draft)
	}
	if m, _ := before.Get("1"); m.Draft != "" {
		t.Error("earlier snapshot was mutated")
	}
	if d.Current().Generation != before.Generation {
		t.Error("Update changed the generation")
	}
}

func TestUpdate_RepliedIsSticky(t *testing.T) {
	d := New()
	snap := d.Replace(msgs("1"))

	_, _ = d.Update(snap.Generation, "1", func(m *model.Message) { m.Replied = true })
	got, _ := d.Update(snap.Generation, "1", func(m *model.Message) { m.Replied = false })

	if !got.Replied {
		t.Error("Replied was reset")
	}
}

func TestUpdate_RejectsReplacedGeneration(t *testing.T) {
	d := New()
	old := d.Replace(msgs("1"))
	d.Replace(msgs("1"))

	called := false
	_, err := d.Update(old.Generation, "1", func(m *model.Message) { called = true })
	if !IsStale(err) {
		t.Errorf("err = %v, want StaleError", err)
	}
	if called {
		t.Error("update function ran against a stale generation")
	}

	if m, _, _ := d.Lookup("1", 0); m.Draft != "" || m.Replied {
		t.Errorf("current snapshot changed: %+v", m)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	d := New()
	snap := d.Replace(msgs("1"))

	_, err := d.Update(snap.Generation, "7", func(*model.Message) {})
	if !errors.Is(err, ErrNotFound) || IsStale(err) {
		t.Errorf("err = %v, want plain ErrNotFound", err)
	}
}
