package obari_test

import (
	"context"
	"fmt"
	"log"
	"os"

	obari "github.com/obari/ledger"
)

// Example_basic demonstrates storing a full BASE -> ADJUSTED -> FINAL chain
// and rendering the invoice for it.
func Example_basic() {
	// Create a temporary directory for the example
	tmpDir, err := os.MkdirTemp("", "obari-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// Initialize the ledger service targeting the temporary directory.
	svc, err := obari.New(tmpDir)
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	ctx := context.Background()

	payload := obari.Payload{
		Currency: "USD",
		Lines: []obari.LineItem{
			{SKU: "SVC-1", Description: "Consulting", Qty: 2, UnitPrice: 50, TaxRate: 0.1},
		},
		Subtotal: 100,
		TaxTotal: 10,
		Total:    110,
	}

	// 1. Store the BASE snapshot
	base, err := svc.Ledger.PutBase(ctx, obari.PutRequest{
		DealID:  "deal-42",
		Number:  "INV-42",
		Payload: payload,
	})
	if err != nil {
		log.Fatal(err)
	}

	// 2. Chain an ADJUSTED and a FINAL snapshot onto it
	adjusted, err := svc.Ledger.PutAdjusted(ctx, obari.PutRequest{
		DealID:     "deal-42",
		Number:     "INV-42",
		ParentHash: base.Hash,
		Payload:    payload,
	})
	if err != nil {
		log.Fatal(err)
	}
	final, err := svc.Ledger.PutFinal(ctx, obari.PutRequest{
		DealID:     "deal-42",
		Number:     "INV-42",
		ParentHash: adjusted.Hash,
		Payload:    payload,
	})
	if err != nil {
		log.Fatal(err)
	}

	// 3. Render the invoice from the newest FINAL snapshot
	artifact, err := svc.Render(ctx, "deal-42", "")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Chain verified: %v\n", artifact.Provenance.FinalHash == final.Hash)
	// Output:
	// Chain verified: true
}
