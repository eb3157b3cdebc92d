package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/store"
)

// Scenario defines a sequence of operations and the expected final store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// AppName is written into exported backups. Defaults to the
	// application default.
	AppName string `yaml:"app_name,omitempty"`

	// ReplaceMode selects how import and download replace the store:
	// "sequential" (default) or "atomic".
	ReplaceMode string `yaml:"replace_mode,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// As names the record or artifact the step produces, so later steps
	// can refer to it.
	As string `yaml:"as,omitempty"`

	Args StepArgs `yaml:"args,omitempty"`

	// ExpectError is the ledgererr code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// StepArgs holds the arguments of every operation. Each operation reads the
// fields it needs.
type StepArgs struct {
	Customer string `yaml:"customer,omitempty"` // alias of a customer
	Invoice  string `yaml:"invoice,omitempty"`  // alias of an invoice

	Name    string `yaml:"name,omitempty"`
	Phone   string `yaml:"phone,omitempty"`
	Email   string `yaml:"email,omitempty"`
	Address string `yaml:"address,omitempty"`
	Notes   string `yaml:"notes,omitempty"`

	Number      string `yaml:"number,omitempty"`
	Description string `yaml:"description,omitempty"`
	Total       string `yaml:"total,omitempty"`
	Status      string `yaml:"status,omitempty"`

	Filename string `yaml:"filename,omitempty"`
	Data     string `yaml:"data,omitempty"` // base64 payload

	From     string `yaml:"from,omitempty"`     // alias of an exported artifact
	Document string `yaml:"document,omitempty"` // literal backup text
	Strict   bool   `yaml:"strict,omitempty"`
	Offline  bool   `yaml:"offline,omitempty"`
}

// Step operations.
const (
	OpCreateCustomer = "create_customer"
	OpUpdateCustomer = "update_customer"
	OpDeleteCustomer = "delete_customer"
	OpCreateInvoice  = "create_invoice"
	OpUpdateInvoice  = "update_invoice"
	OpDeleteInvoice  = "delete_invoice"
	OpAttachImage    = "attach_image"
	OpExport         = "export"
	OpWipe           = "wipe"
	OpImport         = "import"
	OpUpload         = "upload"
	OpDownload       = "download"
)

var knownOps = map[string]bool{
	OpCreateCustomer: true, OpUpdateCustomer: true, OpDeleteCustomer: true,
	OpCreateInvoice: true, OpUpdateInvoice: true, OpDeleteInvoice: true,
	OpAttachImage: true, OpExport: true, OpWipe: true,
	OpImport: true, OpUpload: true, OpDownload: true,
}

// Assertion validates the final store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": collection holds exactly Count records
	// - "customer_present": a customer named Name exists
	// - "invoice_present": an invoice numbered Number exists (with Status if set)
	// - "image_present": an image named Filename exists (with Data if set)
	Type string `yaml:"type"`

	Collection string `yaml:"collection,omitempty"`
	Count      int    `yaml:"count,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Number     string `yaml:"number,omitempty"`
	Status     string `yaml:"status,omitempty"`
	Filename   string `yaml:"filename,omitempty"`
	Data       string `yaml:"data,omitempty"`
}

// Assertion type constants.
const (
	AssertCount           = "count"
	AssertCustomerPresent = "customer_present"
	AssertInvoicePresent  = "invoice_present"
	AssertImagePresent    = "image_present"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	switch s.ReplaceMode {
	case "", "sequential", "atomic":
	default:
		return fmt.Errorf("unknown replace_mode %q", s.ReplaceMode)
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.ExpectError != "" && !knownCode(step.ExpectError) {
			return fmt.Errorf("steps[%d]: unknown error code %q", i, step.ExpectError)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func knownCode(code string) bool {
	for _, c := range ledgererr.Codes {
		if string(c) == code {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCount:
		if !store.Collection(a.Collection).Valid() {
			return fmt.Errorf("assertions[%d]: unknown collection %q for count", index, a.Collection)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertCustomerPresent:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for customer_present", index)
		}
	case AssertInvoicePresent:
		if a.Number == "" {
			return fmt.Errorf("assertions[%d]: number is required for invoice_present", index)
		}
	case AssertImagePresent:
		if a.Filename == "" {
			return fmt.Errorf("assertions[%d]: filename is required for image_present", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
