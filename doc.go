// Package soa turns a flat transaction ledger covering many merchants into one
// statement of account per merchant.
//
// The core functionalities include:
//   - Ledger Model: decoding ledger files (CSV, XLSX, JSON) into records and
//     projecting them through a ColumnMapping into typed TransactionRows.
//   - Balance Calculator: grouping rows by merchant in first-seen order,
//     ordering them by date when possible, and deriving document amounts and
//     a running accumulated balance with exact decimal arithmetic.
//   - Statement Composer: turning a merchant Statement into a declarative
//     Document (banner, addressing, transaction table, totals and payment
//     instructions) driven by a LayoutProfile.
//   - Batch Orchestrator: running the whole pipeline for a ledger, naming each
//     statement safely and handing documents to a renderer.
//
// Rendering lives in the renderer package and packaging in the bundle package,
// this package performs no I/O beyond decoding the ledger it is given.
//
// This package serves as the foundational logic for the `soa` command-line
// tool.
package soa
