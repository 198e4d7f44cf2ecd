// Package core provides the business logic for lead imports and lead
// mutations.
//
// The package holds no transport or storage code. Web handlers and the CLI
// call [Service]; persistence is reached only through the [Store] interface.
//
// # Import Pipeline
//
// [Service.ImportLeads] runs a fixed sequence of stages over one uploaded
// file:
//
//  1. [Parse] tokenizes CSV ([ParseCSV]) or XLSX ([ParseWorkbook]) into
//     [ImportRow] values. Malformed input, zero rows and more than
//     [MaxImportRows] rows abort the import with a [HardInputError].
//  2. [Normalize] trims, case-folds and parses each row into a [Record].
//  3. Rows whose email already appeared earlier in the file are rejected.
//  4. [ValidateRow] applies the business rules.
//  5. One [Store.ExistingEmails] call rejects emails the owner already has.
//  6. One [Store.WithTx] call creates every surviving lead together with
//     its audit entry. A failure rolls back the batch ([CommitError]).
//  7. Everything is merged into an [ImportResult].
//
// Row numbers count the header, so the first data row is row 2.
//
// # Audit Trail
//
// Every lead mutation writes an [AuditEntry] in the same transaction. Its
// payload is one of [CreatedPayload], [UpdatedPayload] or [ImportedPayload];
// updates carry only the fields reported by [Diff].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages by [MapError]:
//
//   - DB001-DB007: database errors
//   - VAL001-VAL002: validation errors
//   - FILE001-FILE006: upload errors
//   - IMP001-IMP004: import errors
//   - LEAD001, AUTH001-AUTH003, RATE001
package core
