// Package tabular implements metadata.Source over a flat point export: one
// record per point, carrying its equipment's class, identifier, name and
// parent. Records come from a CSV file or a SQLite table with the same
// columns.
//
// Equipment is selected by equipment class identifier, grouped by equipment
// identifier, and the first record of each group is canonical. A role
// resolves when exactly one of the equipment's records carries one of the
// role's labels in the configured point meta field.
package tabular
