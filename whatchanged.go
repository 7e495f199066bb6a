// Package whatchanged tells a user what changed on a web page since they
// last saw it. Page captures are reduced to plain text, stored as
// content-addressed snapshots, and diffed word by word against the
// previous visit.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, diffmatchpatch/).
package whatchanged
