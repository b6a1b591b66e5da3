package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sollayout/internal/locate"
)

// ExpectationError describes one unmet expectation.
type ExpectationError struct {
	Subject  string // what was compared, e.g. "entry b offset"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Subject, e.Expected, e.Actual)
}

// EvaluateExpect compares a successful result against expect and returns
// one message per mismatch. Nothing is compared when expect is nil.
func EvaluateExpect(result *Result, expect *Expect) []string {
	if expect == nil || result.Layout == nil {
		return nil
	}

	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.TotalSlots != nil {
		add(compareInt("total_slots", *expect.TotalSlots, result.Layout.TotalSlots()))
	}

	for _, want := range expect.Entries {
		got, ok := result.Layout.Entry(want.Name)
		if !ok {
			add(&ExpectationError{
				Subject:  "entry " + want.Name,
				Expected: "a layout entry",
				Actual:   "no such field",
			})
			continue
		}
		if want.Type != "" && want.Type != got.TypeName() {
			add(&ExpectationError{
				Subject:  fmt.Sprintf("entry %s type", want.Name),
				Expected: want.Type,
				Actual:   got.TypeName(),
			})
		}
		if want.Slot != nil {
			add(compareInt(fmt.Sprintf("entry %s slot", want.Name), *want.Slot, got.Slot))
		}
		if want.Offset != nil {
			add(compareInt(fmt.Sprintf("entry %s offset", want.Name), *want.Offset, got.Offset))
		}
		if want.Size != nil {
			add(compareInt(fmt.Sprintf("entry %s size", want.Name), *want.Size, got.Size))
		}
	}

	for _, want := range expect.Locations {
		add(compareLocation(result.Locations, want))
	}

	return errs
}

func compareInt(subject string, want, got int) error {
	if want == got {
		return nil
	}
	return &ExpectationError{
		Subject:  subject,
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(got),
	}
}

func compareLocation(locs []locate.Location, want ExpectedLocation) error {
	subject := fmt.Sprintf("location %s", want.Name)
	wantSlot, err := locate.ParseBase(want.Slot)
	if err != nil {
		return &ExpectationError{Subject: subject, Expected: "a valid slot", Actual: want.Slot}
	}
	for _, loc := range locs {
		if loc.Name != want.Name {
			continue
		}
		if !strings.EqualFold(loc.SlotHex, locate.Hex(wantSlot)) {
			return &ExpectationError{Subject: subject, Expected: locate.Hex(wantSlot), Actual: loc.SlotHex}
		}
		return nil
	}
	return &ExpectationError{Subject: subject, Expected: "a located field", Actual: "no such field"}
}
