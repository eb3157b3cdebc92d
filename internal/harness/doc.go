// Package harness runs ledgerbook scenarios end to end.
//
// A scenario is a YAML file that drives the repository and the transfer
// engine through a list of steps and then asserts on the final store.
// Every run gets a fresh SQLite file, a frozen clock at
// testutil.DefaultEpoch, sequential record ids and an in-memory remote
// slot, so the final state is reproducible and can be compared against a
// golden file.
//
// # Scenario Format
//
//	name: full_cycle
//	description: "Export, wipe and import restore the same records"
//	app_name: Corner Shop
//	steps:
//	  - op: create_customer
//	    as: acme
//	    args: { name: Acme }
//	  - op: create_invoice
//	    as: inv1
//	    args: { customer: acme, number: INV-1, total: "100" }
//	  - op: attach_image
//	    args: { invoice: inv1, filename: bill.png, data: iVBORw0KGgo= }
//	  - op: export
//	    as: file1
//	  - op: wipe
//	  - op: import
//	    args: { from: file1 }
//	assertions:
//	  - type: count
//	    collection: customers
//	    count: 1
//	  - type: customer_present
//	    name: Acme
//
// Steps refer to records created earlier by their "as" alias. A step that
// is expected to fail names the error code in expect_error; the run then
// checks the code and continues.
//
// # Assertion Types
//
//   - count: the collection holds exactly count records
//   - customer_present: a customer with the given name exists
//   - invoice_present: an invoice with the given number exists, with the
//     given status when one is set
//   - image_present: an image with the given filename exists, with the
//     given payload when data is set
package harness
