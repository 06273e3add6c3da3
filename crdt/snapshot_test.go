package crdt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSerializeState(t *testing.T) {
	doc := newDocWithContent(t, Config{}, "hi")
	if err := doc.Remove(0); err != nil {
		t.Fatal(err)
	}

	data, err := doc.SerializeState()
	if err != nil {
		t.Fatal(err)
	}

	got := string(data)
	want := `[[["1","h"],["2","i"]],["1"]]`
	if got != want {
		t.Errorf("got != want; got = %v, expected = %v\n", got, want)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	doc := newDocWithContent(t, Config{}, "héllo")
	if err := doc.InsertAfter(0, 'x'); err != nil {
		t.Fatal(err)
	}
	if err := doc.Remove(2); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(doc.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if !cmp.Equal(decoded, doc.Snapshot()) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(decoded, doc.Snapshot()))
	}
}

func TestSelfMerge(t *testing.T) {
	doc := newDocWithContent(t, Config{}, "pairpad")
	if err := doc.Replace(3, 'R'); err != nil {
		t.Fatal(err)
	}

	data, err := doc.SerializeState()
	if err != nil {
		t.Fatal(err)
	}

	before := doc.Content()
	positions, tombstones := doc.Stats()

	if err := doc.MergeWithSerializedState(data); err != nil {
		t.Fatal(err)
	}

	if got := doc.Content(); got != before {
		t.Errorf("got = %q, expected = %q", got, before)
	}
	if p, d := doc.Stats(); p != positions || d != tombstones {
		t.Errorf("self merge changed the state size: %d/%d, expected %d/%d", p, d, positions, tombstones)
	}
}

func TestConvergence(t *testing.T) {
	alice := newDocWithContent(t, Config{}, "hello")
	bob := New()
	if err := bob.Merge(alice.Snapshot()); err != nil {
		t.Fatal(err)
	}

	// Alice appends and fixes a letter while Bob prefixes and deletes concurrently.
	for i, r := range " world" {
		if err := alice.InsertAfter(4+i, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := alice.Replace(4, '0'); err != nil {
		t.Fatal(err)
	}
	for i, r := range "oh, " {
		if err := bob.InsertAfter(i-1, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := bob.Remove(4); err != nil {
		t.Fatal(err)
	}

	fromAlice, fromBob := alice.Snapshot(), bob.Snapshot()
	if err := alice.Merge(fromBob); err != nil {
		t.Fatal(err)
	}
	if err := bob.Merge(fromAlice); err != nil {
		t.Fatal(err)
	}

	want := "oh, ell0 world"
	if got := alice.Content(); got != want {
		t.Errorf("alice: got = %q, expected = %q", got, want)
	}
	if got := bob.Content(); got != want {
		t.Errorf("bob: got = %q, expected = %q", got, want)
	}

	// Merging again changes nothing.
	if err := alice.Merge(fromBob); err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(alice.Snapshot(), bob.Snapshot()) {
		t.Errorf("replicas diverged, diff: %v\n", cmp.Diff(alice.Snapshot(), bob.Snapshot()))
	}
}

func TestMergeCollision(t *testing.T) {
	tests := []struct {
		description string
		policy      MergePolicy
		expected    string
		err         error
	}{
		{description: "overwrite", policy: MergeOverwrite, expected: "x"},
		{description: "reject", policy: MergeReject, expected: "y", err: ErrPositionConflict},
	}

	for _, tc := range tests {
		remote := newDocWithContent(t, Config{}, "x")
		local := newDocWithContent(t, Config{MergePolicy: tc.policy}, "y")

		err := local.Merge(remote.Snapshot())
		if !errors.Is(err, tc.err) {
			t.Errorf("(%s) got err = %v, expected = %v", tc.description, err, tc.err)
		}
		if got := local.Content(); got != tc.expected {
			t.Errorf("(%s) got = %q, expected = %q", tc.description, got, tc.expected)
		}
	}
}

func TestMergeMalformed(t *testing.T) {
	tests := []struct {
		description string
		data        string
	}{
		{description: "not json", data: `{{`},
		{description: "null", data: `null`},
		{description: "object", data: `{"inserts": []}`},
		{description: "empty array", data: `[]`},
		{description: "three elements", data: `[[],[],[]]`},
		{description: "short pair", data: `[[["1"]],[]]`},
		{description: "long symbol", data: `[[["1","ab"]],[]]`},
		{description: "empty symbol", data: `[[["1",""]],[]]`},
		{description: "bad key", data: `[[["x","a"]],[]]`},
		{description: "negative component", data: `[[["-1","a"]],[]]`},
		{description: "component at arity", data: `[[["128","a"]],[]]`},
		{description: "trailing zero", data: `[[["3,0","a"]],[]]`},
		{description: "head sentinel", data: `[[["0","a"]],[]]`},
		{description: "orphan tombstone", data: `[[["5","a"]],["6"]]`},
		{description: "valid inserts before a bad one", data: `[[["5","a"],["6","b"],["7",""]],[]]`},
	}

	for _, tc := range tests {
		doc := newDocWithContent(t, Config{}, "ok")
		before := doc.Snapshot()

		err := doc.MergeWithSerializedState([]byte(tc.data))
		if !errors.Is(err, ErrDecode) {
			t.Errorf("(%s) got err = %v, expected ErrDecode", tc.description, err)
		}
		if !cmp.Equal(doc.Snapshot(), before) {
			t.Errorf("(%s) failed merge changed the document, diff: %v\n", tc.description, cmp.Diff(doc.Snapshot(), before))
		}
	}
}

func TestMergeInvalidSymbol(t *testing.T) {
	doc := newDocWithContent(t, Config{}, "ok")
	before := doc.Snapshot()

	err := doc.Merge(Snapshot{Inserts: []InsertEntry{{Key: "5", Symbol: 'a'}, {Key: "6", Symbol: 0xD800}}})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got err = %v, expected ErrDecode", err)
	}
	if !cmp.Equal(doc.Snapshot(), before) {
		t.Errorf("failed merge changed the document, diff: %v\n", cmp.Diff(doc.Snapshot(), before))
	}
}

func TestSelfMergeRejectPolicy(t *testing.T) {
	doc := newDocWithContent(t, Config{MergePolicy: MergeReject}, "héllo, 世界 🙂")
	if err := doc.Remove(0); err != nil {
		t.Fatal(err)
	}
	before := doc.Content()

	data, err := doc.SerializeState()
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.MergeWithSerializedState(data); err != nil {
		t.Fatalf("self merge: %v", err)
	}

	if got := doc.Content(); got != before {
		t.Errorf("got = %q, expected = %q", got, before)
	}
}
