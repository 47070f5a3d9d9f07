// Package responders provides the reference responder set, one capability per
// dialogue stage. Their content heuristics are shallow by intent: each one
// builds a deterministic draft reply and asks the generation backend to
// rephrase it, so the same set works offline and against a hosted model.
package responders
