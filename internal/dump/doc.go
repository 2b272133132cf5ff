// Package dump interprets the line-oriented export format of a
// project-tracking workspace and rebuilds an in-memory relational
// snapshot from it.
//
// An export file declares a field schema per table
// (`<table>:fields, ["a","b",...]`) and then streams data rows
// (`<table>, [v1,v2,...]`) whose positional values are zipped against the
// most recently declared schema. The Scanner classifies lines one forward
// pass at a time, the Snapshot accumulates rows per table in file order,
// and the Index turns the snapshot into keyed lookup tables with an
// explicit missing-key policy.
package dump
