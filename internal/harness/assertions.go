package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ledgerbook/internal/codec"
	"github.com/roach88/ledgerbook/internal/repository"
	"github.com/roach88/ledgerbook/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final dataset and
// returns one message per failure.
func EvaluateAssertions(ds repository.Dataset, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCount:
			err = assertCount(ds, a)
		case AssertCustomerPresent:
			err = assertCustomerPresent(ds, a)
		case AssertInvoicePresent:
			err = assertInvoicePresent(ds, a)
		case AssertImagePresent:
			err = assertImagePresent(ds, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertCount(ds repository.Dataset, a Assertion) error {
	var n int
	switch store.Collection(a.Collection) {
	case store.Customers:
		n = len(ds.Customers)
	case store.Invoices:
		n = len(ds.Invoices)
	case store.Images:
		n = len(ds.Images)
	default:
		return fmt.Errorf("unknown collection %q", a.Collection)
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d %s", a.Count, a.Collection),
			Actual:   fmt.Sprintf("%d %s", n, a.Collection),
		}
	}
	return nil
}

func assertCustomerPresent(ds repository.Dataset, a Assertion) error {
	names := make([]string, 0, len(ds.Customers))
	for _, c := range ds.Customers {
		if c.Name == a.Name {
			return nil
		}
		names = append(names, c.Name)
	}
	return &AssertionError{
		Type:     AssertCustomerPresent,
		Expected: fmt.Sprintf("customer %q", a.Name),
		Actual:   fmt.Sprintf("customers %q", names),
	}
}

func assertInvoicePresent(ds repository.Dataset, a Assertion) error {
	for _, inv := range ds.Invoices {
		if inv.InvoiceNumber != a.Number {
			continue
		}
		if a.Status != "" && string(inv.Status) != a.Status {
			return &AssertionError{
				Type:     AssertInvoicePresent,
				Expected: fmt.Sprintf("invoice %q with status %s", a.Number, a.Status),
				Actual:   fmt.Sprintf("status %s", inv.Status),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertInvoicePresent,
		Expected: fmt.Sprintf("invoice %q", a.Number),
		Actual:   "not found",
	}
}

func assertImagePresent(ds repository.Dataset, a Assertion) error {
	for _, img := range ds.Images {
		if img.Filename != a.Filename {
			continue
		}
		if a.Data != "" && codec.Encode(img.Data) != a.Data {
			return &AssertionError{
				Type:     AssertImagePresent,
				Expected: fmt.Sprintf("image %q with data %s", a.Filename, a.Data),
				Actual:   fmt.Sprintf("data %s", codec.Encode(img.Data)),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertImagePresent,
		Expected: fmt.Sprintf("image %q", a.Filename),
		Actual:   "not found",
	}
}
