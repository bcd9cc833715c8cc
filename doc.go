// Package obari is the Composition Root for the OBARI provenance ledger.
//
// It connects the core chain logic (Domain Layer) with the storage adapters
// (Persistence Layer) using the Hexagonal Architecture pattern.
//
// Philosophy:
//
// OBARI treats a deal's billing history as an append-only chain of
// content-addressed documents. Every mutation is a new file whose name embeds
// the SHA-256 of its canonical payload; nothing is ever edited in place. A
// deal moves through three stages, BASE, ADJUSTED and FINAL, each linked to
// its predecessor by hash, so any reader can verify the full provenance of an
// invoice from the files alone.
//
// Features:
//
//   - **Write-once storage**: snapshots are immutable; re-submitting identical
//     content is a no-op.
//   - **Hash chaining**: ADJUSTED references its BASE, FINAL references its
//     ADJUSTED. Broken links are rejected at write time and reported by the
//     auditor.
//   - **Gate re-validation**: payloads are validated on every read, not just
//     on write, so external tampering surfaces as a conflict.
//   - **Snapshot index**: a SQLite cache accelerates newest-snapshot
//     selection; the files stay authoritative and the index can be rebuilt.
//   - **Chain auditor**: a read-only pass over all stages reporting orphaned
//     references and corrupt files.
//   - **Invoice renderer**: produces a deterministic text artifact from the
//     newest FINAL snapshot, stamped with the full hash chain.
//
// Usage:
//
//	svc, err := obari.New("./ledger",
//		obari.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer svc.Close()
//
//	base, err := svc.Ledger.PutBase(ctx, obari.PutRequest{
//		DealID:  "deal-42",
//		Number:  "INV-42",
//		Payload: payload,
//	})
//
//	artifact, err := svc.Render(ctx, "deal-42", "")
package obari
