package testutil

// Canonical document texts used across extraction tests. Kept here so the
// classifier, field extractor and pipeline tests agree on what a typical
// document looks like.

// SampleInvoiceText is a complete standard invoice with an itemized table.
const SampleInvoiceText = `ACME Corporation
Invoice #INV-2024-001
Date: 03/15/2024
Vendor: ACME Corporation

Description Qty Price Amount
Widget Assembly 3 10.00 30.00
Premium Support Plan 1 120.00 120.00

Subtotal: 150.00
Tax: $12.38
Total: $162.38
Thank you for your business`

// SampleReceiptText is a retail receipt without invoice vocabulary.
const SampleReceiptText = `CORNER MARKET
Receipt #R-88321
Date: 04/02/2024
Store: Corner Market Downtown

Total Paid: $23.45`

// SamplePurchaseOrderText carries purchase-order markers.
const SamplePurchaseOrderText = `Purchase Order
PO Number: PO-7731
Order Date: 05/20/2024
Supplier: Bolt Supply House
Total: 480.00`

// SampleBankStatementText carries bank-statement markers.
const SampleBankStatementText = `First National Bank Statement
Statement Date: 06/30/2024
Account Balance summary
Closing Balance: $9,410.22`
