package fixture

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerateUsername(t *testing.T) {
	a := GenerateUsername()
	b := GenerateUsername()
	if a == b {
		t.Fatalf("GenerateUsername() returned %q twice", a)
	}
	for _, u := range []string{a, b} {
		if !strings.HasPrefix(u, "qa_") {
			t.Errorf("GenerateUsername() = %q, want prefix qa_", u)
		}
		if _, err := strconv.ParseInt(strings.TrimPrefix(u, "qa_"), 10, 64); err != nil {
			t.Errorf("GenerateUsername() = %q, want qa_<milliseconds>: %v", u, err)
		}
	}
}

func TestGeneratorSequence(t *testing.T) {
	g := NewGenerator(Sequence(1700000000000))
	got := []string{g.Username(), g.SSN(), g.Username()}
	want := []string{"qa_1700000000000", "1700000000001", "qa_1700000000002"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("generated values diff (-want/+got):\n%s", diff)
	}
}

func TestNewIdentity(t *testing.T) {
	g := NewGenerator(Sequence(42))
	id := g.NewIdentity(UserTemplate())
	want := Identity{UserProfile: UserTemplate(), Username: "qa_42", SSN: "43"}
	if diff := cmp.Diff(want, id); diff != "" {
		t.Fatalf("NewIdentity() diff (-want/+got):\n%s", diff)
	}

	// The template is a value; changing the clone leaves it untouched.
	id.FirstName = "Changed"
	if got := UserTemplate().FirstName; got != "QA" {
		t.Fatalf("UserTemplate().FirstName = %q after mutating a clone", got)
	}
}

func TestTemplatesAreCopies(t *testing.T) {
	u := UserTemplate()
	u.Password = "changed"
	if got := UserTemplate().Password; got != "Passw0rd123" {
		t.Errorf("UserTemplate().Password = %q, want Passw0rd123", got)
	}
	p := Payee()
	p.AccountNumber = "1"
	if got := Payee().AccountNumber; got != "99999" {
		t.Errorf("Payee().AccountNumber = %q, want 99999", got)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default() returned distinct generators")
	}
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		u := Default().Username()
		if seen[u] {
			t.Fatalf("Default().Username() repeated %q", u)
		}
		seen[u] = true
	}
}

func TestMonotonic(t *testing.T) {
	tests := []struct {
		desc  string
		clock []int64
		want  []int64
	}{
		{
			desc:  "advancing clock passes through",
			clock: []int64{10, 11, 15},
			want:  []int64{10, 11, 15},
		},
		{
			desc:  "stalled clock is bumped",
			clock: []int64{10, 10, 10},
			want:  []int64{10, 11, 12},
		},
		{
			desc:  "clock moving backwards is bumped",
			clock: []int64{10, 5, 11, 20},
			want:  []int64{10, 11, 12, 20},
		},
	}
	for _, tc := range tests {
		i := 0
		src := Monotonic(SourceFunc(func() int64 {
			v := tc.clock[i]
			i++
			return v
		}))
		var got []int64
		for range tc.clock {
			got = append(got, src.Next())
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: diff (-want/+got):\n%s", tc.desc, diff)
		}
	}
}

func TestMonotonicConcurrent(t *testing.T) {
	src := Monotonic(SourceFunc(func() int64 { return 7 }))
	const n = 64
	seen := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- src.Next()
		}()
	}
	wg.Wait()
	close(seen)

	uniq := make(map[int64]bool)
	for v := range seen {
		if uniq[v] {
			t.Fatalf("Monotonic returned %d twice", v)
		}
		uniq[v] = true
	}
}
