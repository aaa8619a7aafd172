package random_test

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/shrimple-guild/leaderboard/internal/domain/random"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPick(t *testing.T) {
	Convey("Given an empty candidate list", t, func() {
		_, err := random.Pick([]string{}, []byte{0xff})
		So(errors.Is(err, random.ErrNoCandidates), ShouldBeTrue)
	})

	Convey("Given a single candidate", t, func() {
		picked, err := random.Pick([]string{"only"}, nil)

		Convey("Then it should win without consuming randomness", func() {
			So(err, ShouldBeNil)
			So(picked, ShouldEqual, "only")
		})
	})

	Convey("Given five candidates and a stream starting 101 110 011", t, func() {
		// Three-bit chunks: 5 and 6 are out of range for n=5 and must be
		// rejected; the third chunk, 3, is the first in-range value.
		picked, err := random.Pick([]string{"A", "B", "C", "D", "E"}, []byte{0b10111001, 0b10000000})

		Convey("Then rejection sampling should land on index 3", func() {
			So(err, ShouldBeNil)
			So(picked, ShouldEqual, "D")
		})
	})

	Convey("Given identical inputs", t, func() {
		randomness := sha256.Sum256([]byte("round-4242"))
		candidates := []string{"a", "b", "c", "d", "e", "f", "g"}

		first, err1 := random.Pick(candidates, randomness[:])
		second, err2 := random.Pick(candidates, randomness[:])

		Convey("Then the pick should be deterministic", func() {
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(first, ShouldEqual, second)
		})
	})

	Convey("Given a power-of-two candidate count", t, func() {
		// n=8 needs exactly 3 bits; every chunk is in range so the first
		// chunk decides.
		picked, err := random.Pick([]string{"0", "1", "2", "3", "4", "5", "6", "7"}, []byte{0b11100000})

		Convey("Then the first three bits should pick index 7 directly", func() {
			So(err, ShouldBeNil)
			So(picked, ShouldEqual, "7")
		})
	})

	Convey("Given a stream where every chunk is out of range", t, func() {
		// For n=5 every 3-bit chunk of 0xff is 7.
		_, err := random.Pick([]string{"a", "b", "c", "d", "e"}, []byte{0xff, 0xff})

		Convey("Then selection should fail rather than default", func() {
			So(errors.Is(err, random.ErrExhausted), ShouldBeTrue)
		})
	})

	Convey("Given an empty stream and multiple candidates", t, func() {
		_, err := random.Pick([]string{"a", "b"}, nil)
		So(errors.Is(err, random.ErrExhausted), ShouldBeTrue)
	})
}

func TestPickDistribution(t *testing.T) {
	Convey("Given many independent randomness values", t, func() {
		const trials = 20_000
		candidates := []string{"a", "b", "c", "d", "e"}
		counts := make(map[string]int, len(candidates))

		var seed [8]byte
		for i := 0; i < trials; i++ {
			binary.BigEndian.PutUint64(seed[:], uint64(i))
			randomness := sha256.Sum256(seed[:])
			picked, err := random.Pick(candidates, randomness[:])
			if err != nil {
				t.Fatalf("trial %d: %v", i, err)
			}
			counts[picked]++
		}

		Convey("Then no candidate should be visibly biased", func() {
			expected := float64(trials) / float64(len(candidates))
			var chiSquare float64
			for _, c := range candidates {
				diff := float64(counts[c]) - expected
				chiSquare += diff * diff / expected
			}
			// 4 degrees of freedom; 18.47 is the 0.1% critical value.
			So(chiSquare, ShouldBeLessThan, 18.47)
		})
	})
}
