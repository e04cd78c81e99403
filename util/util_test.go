package util_test

import (
	"errors"
	"fmt"
	"testing"

	"github.jpl.nasa.gov/bdube/odinflash/util"
)

func ExampleSetBit_msb() {
	out := util.SetBit(0, 7, true)
	fmt.Printf("%08b\n", out)
	// Output: 10000000
}

func ExampleSetBit_lsb() {
	out := util.SetBit(255, 0, false)
	fmt.Printf("%08b\n", out)
	// Output: 11111110
}

func TestGetBitReadsCompressionFlag(t *testing.T) {
	b := byte(0x80)
	if !util.GetBit(b, 7) {
		t.Errorf("expected bit 7 of 0x80 to be set")
	}
	if util.GetBit(b, 0) {
		t.Errorf("expected bit 0 of 0x80 to be clear")
	}
}

func TestMergeErrorsSkipsNil(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	got := util.MergeErrors([]error{nil, e1, nil, e2})
	want := "first\nsecond"
	if got.Error() != want {
		t.Errorf("want %q, got %q", want, got.Error())
	}
}

func TestMergeErrorsAllNilReturnsNil(t *testing.T) {
	if got := util.MergeErrors([]error{nil, nil}); got != nil {
		t.Errorf("want nil, got %v", got)
	}
}
