/*
Package domain contains the core models of the coaching engine.

It defines the ordered dialogue stages, the Session record, the responder Output
contract and the closed set of turn classifications. This package is kept pure and
free of I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Stage: one of the seven ordered steps of a coaching session.
  - Session: the record of one conversation (stage, history, derived fields, counters).
  - Output: what a responder proposes for a turn.
  - Tag / Severity / Incident: how a turn was classified and how bad it is.
  - SessionDiff: a JSON-friendly delta between two versions of a Session.
*/
package domain
