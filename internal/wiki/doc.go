// Package wiki reconstructs the wiki document tree from a workspace
// snapshot and replays its full version history as a chronologically
// ordered sequence of change events.
//
// BuildTree resolves parent, author and timestamp references for every
// wiki page and computes each page's depth level; Traverse flattens the
// forest into presentation order. Versions enriches every historical
// revision, and Replay merges them into one strictly time-ordered event
// stream, each event carrying the rendered page body and a point-in-time
// index artifact, ready for an external commit writer.
package wiki
