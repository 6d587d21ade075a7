// Package core turns the head of an uploaded tabular file into a column
// preview and lets the user confirm which column holds email addresses.
//
// Everything here is independent of HTTP and storage; the web server, the
// CLI and the tests drive the same types.
//
// # Pipeline
//
// The analysis is a chain of pure functions over immutable values:
//
//  1. [Parse] splits text into at most maxRows ragged [Record] values.
//  2. [Analyze] decides whether row 0 is a header and synthesizes
//     "Column N" labels when it is not.
//  3. [Score] rates every column for email-likeness and infers a default.
//
// [BuildPreview] runs all three and produces a [State].
//
// # Sessions
//
// A [Session] owns one State. [Session.LoadSource] reads a bounded prefix
// of a [Source] in the background; each call carries a generation token and
// only the newest generation may commit, so replacing a file while the
// previous one is still loading never mixes the two. [Session.SelectColumn]
// overrides the inferred column and [Session.Confirm] hands a
// [MappingResult] to the session's [MappingSink].
//
// [Service] keeps many sessions apart by id, bounds concurrent loads with a
// [LoadLimiter] and expires idle sessions.
//
// # Errors
//
// Parsing and analysis never fail. Only reading ([ReadError]) and caller
// misuse ([ErrInvalidColumnIndex], [ErrNotReady]) do. [MapError] turns any
// of them into a coded [UserMessage] for display.
package core
