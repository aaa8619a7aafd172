package beacon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testGenesis = time.Unix(1_595_431_050, 0)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, testGenesis, 30*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", testGenesis, 30*time.Second); !errors.Is(err, ErrBadChain) {
		t.Fatalf("empty url: err = %v, want ErrBadChain", err)
	}
	if _, err := NewClient("http://localhost", testGenesis, 0); !errors.Is(err, ErrBadChain) {
		t.Fatalf("zero period: err = %v, want ErrBadChain", err)
	}
}

func TestRoundAt(t *testing.T) {
	c, err := NewClient("http://localhost", testGenesis, 30*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	cases := []struct {
		at   time.Time
		want uint64
	}{
		{testGenesis, 1},
		{testGenesis.Add(29 * time.Second), 1},
		{testGenesis.Add(30 * time.Second), 2},
		{testGenesis.Add(95 * time.Second), 4},
	}
	for _, tc := range cases {
		got, err := c.RoundAt(tc.at)
		if err != nil {
			t.Fatalf("RoundAt(%s): %v", tc.at, err)
		}
		if got != tc.want {
			t.Errorf("RoundAt(+%s) = %d, want %d", tc.at.Sub(testGenesis), got, tc.want)
		}
	}

	if _, err := c.RoundAt(testGenesis.Add(-time.Second)); !errors.Is(err, ErrBadChain) {
		t.Fatalf("pre-genesis: err = %v, want ErrBadChain", err)
	}
}

func TestRandomnessAt(t *testing.T) {
	var requested string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		fmt.Fprint(w, `{"round":4,"randomness":"deadbeef","signature":"00"}`)
	})

	got, err := c.RandomnessAt(context.Background(), testGenesis.Add(95*time.Second))
	if err != nil {
		t.Fatalf("RandomnessAt: %v", err)
	}
	if requested != "/public/4" {
		t.Fatalf("requested %q, want /public/4", requested)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}
}

func TestRandomnessErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		})
		if _, err := c.Randomness(context.Background(), 9); !errors.Is(err, ErrFetch) {
			t.Fatalf("err = %v, want ErrFetch", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"round":`)
		})
		if _, err := c.Randomness(context.Background(), 9); !errors.Is(err, ErrFetch) {
			t.Fatalf("err = %v, want ErrFetch", err)
		}
	})

	t.Run("invalid randomness hex", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"round":9,"randomness":"zz","signature":""}`)
		})
		if _, err := c.Randomness(context.Background(), 9); !errors.Is(err, ErrFetch) {
			t.Fatalf("err = %v, want ErrFetch", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		c, err := NewClient("http://127.0.0.1:1", testGenesis, 30*time.Second)
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		if _, err := c.Randomness(context.Background(), 1); !errors.Is(err, ErrFetch) {
			t.Fatalf("err = %v, want ErrFetch", err)
		}
	})
}
